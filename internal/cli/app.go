// Package cli is the terminal view layer of the feed: cobra commands that
// drive the auth, post and comment stores and render their state.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"feedsync/internal/config"
	"feedsync/internal/guard"
	"feedsync/internal/media"
	"feedsync/internal/remote"
	"feedsync/internal/session"
	"feedsync/internal/store"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// IO bundles the streams a command reads and writes.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdIO returns the process streams.
func StdIO() IO {
	return IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// App owns the stores for one CLI invocation.
type App struct {
	cfg *config.Config
	io  IO
	in  *bufio.Reader

	client   *remote.Client
	auth     *store.AuthStore
	posts    *store.PostStore
	comments *store.CommentStore
	guard    *guard.Guard

	spinner *spinner.Spinner
	closers []func() error
}

// NewApp wires the remote client, the session store and the stores from cfg.
func NewApp(cfg *config.Config, stdio IO) (*App, error) {
	a := &App{cfg: cfg, io: stdio, in: bufio.NewReader(stdio.In)}

	sessions, err := a.sessionStore()
	if err != nil {
		return nil, err
	}

	a.client = remote.NewClient(remote.Options{
		Endpoint:  cfg.Endpoint,
		ProjectID: cfg.ProjectID,
		Timeout:   cfg.HTTPTimeout,
		Sessions:  sessions,
	})
	a.auth = store.NewAuthStore(a.client)
	a.comments = store.NewCommentStore(a.client, store.CommentStoreConfig{
		DatabaseID:   cfg.DatabaseID,
		CollectionID: cfg.CommentCollectionID,
	})
	a.posts = store.NewPostStore(a.client, a.client, a.comments, store.PostStoreConfig{
		DatabaseID:   cfg.DatabaseID,
		CollectionID: cfg.PostCollectionID,
		BucketID:     cfg.BucketID,
		PageSize:     cfg.PageSize,
		Media: media.Options{
			MaxUploadSizeMB: cfg.ImageMaxUploadSizeMB,
			MaxDimension:    cfg.ImageMaxDimension,
		},
	})
	a.guard = guard.New(a.auth)

	if isTerminal(stdio.Err) {
		a.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(stdio.Err))
		a.watchLoading()
	}
	return a, nil
}

func (a *App) sessionStore() (session.Store, error) {
	switch a.cfg.SessionStore {
	case "redis":
		client, err := session.NewRedisClient(a.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return session.NewRedisStore(client, a.cfg.ProjectID), nil
	default:
		return session.NewFileStore(a.cfg.SessionFile, a.cfg.ProjectID), nil
	}
}

// watchLoading spins while any store has an operation in flight.
func (a *App) watchLoading() {
	render := func() {
		loading := a.auth.State().Loading || a.posts.State().Loading || a.comments.State().Loading
		if loading {
			a.spinner.Start()
		} else {
			a.spinner.Stop()
		}
	}
	a.closers = append(a.closers,
		noErr(a.auth.Subscribe(render)),
		noErr(a.posts.Subscribe(render)),
		noErr(a.comments.Subscribe(render)),
	)
}

func noErr(fn func()) func() error {
	return func() error {
		fn()
		return nil
	}
}

// Close releases the session store connection and listeners.
func (a *App) Close() error {
	if a.spinner != nil {
		a.spinner.Stop()
	}
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// requireUser runs the route guard for location and fails with a sign-in hint on redirect.
func (a *App) requireUser(ctx context.Context, location string) error {
	decision := a.guard.Require(ctx, location)
	if decision.Kind == guard.Allow {
		return nil
	}
	if decision.Error != "" {
		return fmt.Errorf("%s (cannot open %s)", decision.Error, decision.From)
	}
	return fmt.Errorf("not signed in: run `feed login` to open %s", decision.From)
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
