package cli

import (
	"fmt"

	"feedsync/internal/remote"
	"feedsync/internal/store"

	"github.com/spf13/cobra"
)

type credentials struct {
	email    string
	password string
	name     string
}

func (c *credentials) bind(cmd *cobra.Command, withName bool) {
	cmd.Flags().StringVarP(&c.email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "account password (prompted when omitted)")
	if withName {
		cmd.Flags().StringVarP(&c.name, "name", "n", "", "display name")
	}
}

func (a *App) resolve(c *credentials, withName bool) error {
	var err error
	if c.email, err = a.valueOr(c.email, "Email: ", false); err != nil {
		return err
	}
	if withName {
		if c.name, err = a.valueOr(c.name, "Name: ", false); err != nil {
			return err
		}
	}
	c.password, err = a.valueOr(c.password, "Password: ", true)
	return err
}

func (a *App) signedIn(outcome store.AuthOutcome) {
	a.success("Signed in as %s <%s>", outcome.User.Name, outcome.User.Email)
}

func newRegisterCmd(a *App) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:     "register",
		Aliases: []string{"signup"},
		Short:   "Create an account and sign in",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.resolve(&creds, true); err != nil {
				return err
			}
			outcome, err := a.auth.Register(cmd.Context(), creds.email, creds.password, creds.name)
			if err != nil {
				return err
			}
			a.signedIn(outcome)
			return nil
		},
	}
	creds.bind(cmd, true)
	return cmd
}

func newLoginCmd(a *App) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:     "login",
		Aliases: []string{"sign-in"},
		Short:   "Sign in with email and password",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.resolve(&creds, false); err != nil {
				return err
			}
			outcome, err := a.auth.Login(cmd.Context(), creds.email, creds.password)
			if err != nil {
				return err
			}
			a.signedIn(outcome)
			return nil
		},
	}
	creds.bind(cmd, false)
	return cmd
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Aliases: []string{"sign-out"},
		Short:   "Sign out of every session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, err := a.auth.Logout(ctx)
			switch {
			case remote.IsUnauthorized(err):
				if clearErr := a.client.ClearSession(ctx); clearErr != nil {
					return clearErr
				}
				fmt.Fprintln(a.io.Out, "Not signed in")
				return nil
			case err != nil:
				return err
			}
			a.success("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := a.auth.CheckStatus(cmd.Context())
			if err != nil {
				return err
			}
			if outcome.Kind != store.OutcomeAuthenticated {
				fmt.Fprintln(a.io.Out, "Not signed in")
				return nil
			}
			authorColor.Fprint(a.io.Out, outcome.User.Name)
			fmt.Fprintf(a.io.Out, " <%s>\n", outcome.User.Email)
			dimColor.Fprintf(a.io.Out, "id %s\n", outcome.User.ID)
			return nil
		},
	}
}
