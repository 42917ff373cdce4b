// Command seed fills a feed backend with fake users, posts and comments.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"feedsync/internal/config"
	"feedsync/internal/observability"
	"feedsync/internal/seed"
)

func main() {
	users := flag.Int("users", 5, "Number of users to create")
	posts := flag.Int("posts", 4, "Posts per user")
	comments := flag.Int("comments", 3, "Comments per post")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.Configure(cfg.Env, cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Seeding %s: %d users, %d posts each, %d comments per post", cfg.Endpoint, *users, *posts, *comments)
	res, err := seed.NewSeeder(cfg, *randSeed).Run(ctx, seed.Options{
		Users:           *users,
		PostsPerUser:    *posts,
		CommentsPerPost: *comments,
	})
	if err != nil {
		log.Fatalf("Seeding failed after %d users, %d posts, %d comments: %v", res.Users, res.Posts, res.Comments, err)
	}
	log.Printf("Done: %d users, %d posts, %d comments", res.Users, res.Posts, res.Comments)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
