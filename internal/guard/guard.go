// Package guard decides whether a protected location may be shown.
package guard

import (
	"context"
	"log/slog"

	"feedsync/internal/observability"
	"feedsync/internal/store"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// Kind is the guard's verdict.
type Kind int

const (
	Allow Kind = iota
	Redirect
)

func (k Kind) String() string {
	if k == Allow {
		return "allow"
	}
	return "redirect"
}

// Decision tells the caller what to render. From holds the originally
// requested location on redirects so the login flow can return there.
type Decision struct {
	Kind  Kind
	To    string
	From  string
	Error string
}

// AuthChecker is the slice of the auth store the guard needs.
type AuthChecker interface {
	IsAuthenticated() bool
	CheckStatus(ctx context.Context) (store.AuthOutcome, error)
}

var _ AuthChecker = (*store.AuthStore)(nil)

// Guard protects locations that need a signed-in user.
type Guard struct {
	auth AuthChecker
}

// New creates a Guard backed by auth.
func New(auth AuthChecker) *Guard {
	return &Guard{auth: auth}
}

// Require allows location when a user is signed in, asking the remote
// service once when the store does not know yet.
func (g *Guard) Require(ctx context.Context, location string) Decision {
	if g.auth.IsAuthenticated() {
		return Decision{Kind: Allow, To: location}
	}

	outcome, err := g.auth.CheckStatus(ctx)
	if err == nil && outcome.Kind == store.OutcomeAuthenticated {
		return Decision{Kind: Allow, To: location}
	}

	d := Decision{Kind: Redirect, To: LoginPath, From: location}
	if outcome.Kind == store.OutcomeNetworkUnavailable || outcome.Kind == store.OutcomeFailed {
		d.Error = outcome.Message
	}
	observability.Logger().DebugContext(ctx, "guard redirect",
		slog.String("from", location),
		slog.String("outcome", outcome.Kind.String()),
	)
	return d
}
