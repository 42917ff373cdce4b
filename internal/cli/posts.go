package cli

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"feedsync/internal/media"
	"feedsync/internal/models"
	"feedsync/internal/observability"
	"feedsync/internal/store"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const (
	feedLocation     = "/feed"
	maxPreviewLength = 60
)

func newPostsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "posts",
		Aliases: []string{"post", "feed"},
		Short:   "Browse and manage posts",
	}
	cmd.AddCommand(
		newPostsListCmd(a),
		newPostsCreateCmd(a),
		newPostsEditCmd(a),
		newPostsDeleteCmd(a),
	)
	return cmd
}

func newPostsListCmd(a *App) *cobra.Command {
	var expand bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the feed, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireUser(ctx, feedLocation); err != nil {
				return err
			}
			if err := a.posts.FetchAll(ctx); err != nil {
				return err
			}
			posts := a.posts.State().Posts
			if len(posts) == 0 {
				fmt.Fprintln(a.io.Out, "No posts yet. Be the first: feed posts create \"hello\"")
				return nil
			}
			counts := make([]string, len(posts))
			failed := 0
			for i, p := range posts {
				comments, err := a.comments.Fetch(ctx, p.ID)
				if err != nil {
					observability.Logger().WarnContext(ctx, "failed to fetch comments",
						slog.String("post_id", p.ID),
						slog.String("error", err.Error()),
					)
					counts[i] = "?"
					failed++
					continue
				}
				counts[i] = strconv.Itoa(len(comments))
			}
			a.renderFeed(posts, counts)
			if failed > 0 {
				errorColor.Fprint(a.io.Err, "✘ ")
				fmt.Fprintf(a.io.Err, "Comments unavailable for %d of %d posts\n", failed, len(posts))
			}
			if expand {
				for _, p := range posts {
					comments, _ := a.comments.Comments(p.ID)
					if len(comments) == 0 {
						continue
					}
					fmt.Fprintln(a.io.Out)
					authorColor.Fprint(a.io.Out, p.AuthorName)
					dimColor.Fprintf(a.io.Out, " %s\n", p.ID)
					a.renderComments(comments)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&expand, "comments", "c", false, "print the comments under each post")
	return cmd
}

func (a *App) renderFeed(posts []models.Post, counts []string) {
	table := tablewriter.NewWriter(a.io.Out)
	table.SetHeader([]string{"ID", "Author", "Posted", "Content", "Image", "Comments"})
	table.SetAutoWrapText(false)
	for i, p := range posts {
		image := ""
		if p.HasImage() {
			image = "yes"
		}
		table.Append([]string{
			p.ID,
			p.AuthorName,
			formatTime(p.CreatedAt),
			preview(p.Content),
			image,
			counts[i],
		})
	}
	table.Render()
}

func (a *App) renderComments(comments []models.Comment) {
	for _, c := range comments {
		dimColor.Fprintf(a.io.Out, "  %s  ", formatTime(c.CreatedAt))
		fmt.Fprintln(a.io.Out, c.Content)
	}
}

// preview flattens content to one line and cuts it to maxPreviewLength runes.
func preview(content string) string {
	line := strings.Join(strings.Fields(content), " ")
	runes := []rune(line)
	if len(runes) <= maxPreviewLength {
		return line
	}
	return string(runes[:maxPreviewLength-1]) + "…"
}

func newPostsCreateCmd(a *App) *cobra.Command {
	var imagePath string
	cmd := &cobra.Command{
		Use:   "create <content...>",
		Short: "Publish a post, optionally with an image",
		Args:  minArgs(1, "feed posts create <content...> [--image path]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireUser(ctx, feedLocation); err != nil {
				return err
			}
			user := a.auth.State().User

			var imageURL *string
			if imagePath != "" {
				url, err := a.uploadImage(ctx, imagePath)
				if err != nil {
					return err
				}
				imageURL = &url
			}

			created, err := a.posts.Create(ctx, store.NewPost{
				OwnerID:    user.ID,
				AuthorName: user.Name,
				Content:    strings.Join(args, " "),
				ImageURL:   imageURL,
			})
			if err != nil {
				return err
			}
			a.success("Posted %s", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "path of an image to attach")
	return cmd
}

func (a *App) uploadImage(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", models.NewValidationError(fmt.Sprintf("Cannot read image %s: %v", path, err))
	}
	return a.posts.UploadImage(ctx, media.Input{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Content:     content,
	})
}

// ownPost loads the feed and returns postID when the signed-in user wrote it.
func (a *App) ownPost(ctx context.Context, postID, action string) (models.Post, error) {
	if err := a.requireUser(ctx, feedLocation); err != nil {
		return models.Post{}, err
	}
	if err := a.posts.FetchAll(ctx); err != nil {
		return models.Post{}, err
	}
	post, ok := a.posts.Post(postID)
	if !ok {
		return models.Post{}, models.NewNotFoundError("Post", postID)
	}
	if user := a.auth.State().User; user == nil || user.ID != post.OwnerID {
		return models.Post{}, models.NewPreconditionError(fmt.Sprintf("Only the author can %s this post", action))
	}
	return post, nil
}

func newPostsEditCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <post-id> <content...>",
		Short: "Replace the content of one of your posts",
		Args:  minArgs(2, "feed posts edit <post-id> <content...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			post, err := a.ownPost(ctx, args[0], "edit")
			if err != nil {
				return err
			}
			a.posts.SetEditable(post.ID)
			if _, err := a.posts.Update(ctx, post.ID, store.PostPatch{Content: strings.Join(args[1:], " ")}); err != nil {
				a.posts.SetEditable(post.ID)
				return err
			}
			if err := a.posts.FetchAll(ctx); err != nil {
				return err
			}
			a.success("Updated %s", post.ID)
			return nil
		},
	}
}

func newPostsDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <post-id>",
		Aliases: []string{"rm"},
		Short:   "Delete one of your posts and its comments",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			post, err := a.ownPost(ctx, args[0], "delete")
			if err != nil {
				return err
			}
			comments, err := a.comments.Fetch(ctx, post.ID)
			if err != nil {
				return err
			}
			if err := a.posts.Delete(ctx, post.ID, len(comments) > 0); err != nil {
				return err
			}
			if err := a.posts.FetchAll(ctx); err != nil {
				return err
			}
			a.success("Deleted %s", post.ID)
			return nil
		},
	}
}
