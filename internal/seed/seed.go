// Package seed fills a feed backend with fake users, posts and comments by
// driving the same stores the CLI uses.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedsync/internal/config"
	"feedsync/internal/observability"
	"feedsync/internal/remote"
	"feedsync/internal/session"
	"feedsync/internal/store"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

// Options size the generated data set.
type Options struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	Password        string
	// Seed makes runs reproducible when non-zero.
	Seed int64
}

// Result counts what a run created.
type Result struct {
	Users    int
	Posts    int
	Comments int
}

// Seeder creates data through the remote service described by cfg.
type Seeder struct {
	cfg   *config.Config
	faker *gofakeit.Faker
}

// NewSeeder returns a Seeder for cfg.
func NewSeeder(cfg *config.Config, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{cfg: cfg, faker: gofakeit.New(seed)}
}

// client is one signed-in fake user.
type client struct {
	auth     *store.AuthStore
	posts    *store.PostStore
	comments *store.CommentStore
}

func (s *Seeder) newClient() *client {
	rc := remote.NewClient(remote.Options{
		Endpoint:  s.cfg.Endpoint,
		ProjectID: s.cfg.ProjectID,
		Timeout:   s.cfg.HTTPTimeout,
		Sessions:  session.NewMemoryStore(),
	})
	comments := store.NewCommentStore(rc, store.CommentStoreConfig{
		DatabaseID:   s.cfg.DatabaseID,
		CollectionID: s.cfg.CommentCollectionID,
	})
	return &client{
		auth:     store.NewAuthStore(rc),
		comments: comments,
		posts: store.NewPostStore(rc, rc, comments, store.PostStoreConfig{
			DatabaseID:   s.cfg.DatabaseID,
			CollectionID: s.cfg.PostCollectionID,
			BucketID:     s.cfg.BucketID,
			PageSize:     s.cfg.PageSize,
		}),
	}
}

// Run registers opts.Users accounts, has each publish posts and then adds
// comments from randomly chosen users to every post.
func (s *Seeder) Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	var res Result
	users := make([]*client, 0, opts.Users)
	var postIDs []string

	for i := 0; i < opts.Users; i++ {
		c := s.newClient()
		name := s.faker.Name()
		email := fmt.Sprintf("%s.%d@%s", s.faker.Username(), s.faker.Number(100, 999), s.faker.DomainName())
		outcome, err := c.auth.Register(ctx, email, opts.Password, name)
		if err != nil {
			return res, fmt.Errorf("register %s: %w", email, err)
		}
		users = append(users, c)
		res.Users++
		observability.Logger().InfoContext(ctx, "seeded user", slog.String("email", email))

		start := s.faker.DateRange(time.Now().AddDate(0, -1, 0), time.Now())
		for j := 0; j < opts.PostsPerUser; j++ {
			post, err := c.posts.Create(ctx, store.NewPost{
				OwnerID:    outcome.User.ID,
				AuthorName: outcome.User.Name,
				Content:    s.faker.Sentence(s.faker.Number(6, 20)),
				CreatedAt:  start.Add(time.Duration(j) * time.Hour),
			})
			if err != nil {
				return res, fmt.Errorf("create post: %w", err)
			}
			postIDs = append(postIDs, post.ID)
			res.Posts++
		}
	}

	if len(users) == 0 {
		return res, nil
	}
	for _, postID := range postIDs {
		for k := 0; k < opts.CommentsPerPost; k++ {
			c := users[s.faker.Number(0, len(users)-1)]
			if _, err := c.comments.Add(ctx, postID, s.faker.Sentence(s.faker.Number(3, 12))); err != nil {
				return res, fmt.Errorf("comment on %s: %w", postID, err)
			}
			res.Comments++
		}
	}
	return res, nil
}
