package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"feedsync/internal/config"
	"feedsync/internal/observability"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// NewRootCmd builds the command tree on a.
func NewRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "feed [command] [flags]",
		Short:         "feed: post, comment and browse the social feed from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.io.In)
	root.SetOut(a.io.Out)
	root.SetErr(a.io.Err)

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newPostsCmd(a),
		newCommentsCmd(a),
		newDebugCmd(a),
	)
	return root
}

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		PrintError(os.Stderr, err)
		return 2
	}
	observability.Configure(cfg.Env, cfg.LogLevel, os.Stderr)

	shutdown, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		ServiceName:    "feedsync-cli",
		ServiceVersion: Version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
		Output:         os.Stderr,
	})
	if err != nil {
		PrintError(os.Stderr, err)
		return 2
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			observability.Logger().Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	app, err := NewApp(cfg, StdIO())
	if err != nil {
		PrintError(os.Stderr, err)
		return 2
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(app).ExecuteContext(ctx); err != nil {
		PrintError(os.Stderr, err)
		return 1
	}
	return 0
}

// minArgs requires at least n positional arguments.
func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return fmt.Errorf("usage: %s", usage)
		}
		return nil
	}
}
