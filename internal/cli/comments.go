package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCommentsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Read and write comments on a post",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "list <post-id>",
			Aliases: []string{"ls"},
			Short:   "Show the comments of a post, newest first",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := a.requireUser(ctx, feedLocation); err != nil {
					return err
				}
				comments, err := a.comments.Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				if len(comments) == 0 {
					fmt.Fprintln(a.io.Out, "No comments yet.")
					return nil
				}
				a.renderComments(comments)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <post-id> <content...>",
			Short: "Comment on a post",
			Args:  minArgs(2, "feed comments add <post-id> <content...>"),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := a.requireUser(ctx, feedLocation); err != nil {
					return err
				}
				created, err := a.comments.Add(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				a.success("Commented %s", created.ID)
				return nil
			},
		},
	)
	return cmd
}
