package cli

import (
	"feedsync/internal/observability"

	"github.com/spf13/cobra"
)

func newDebugCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "debug",
		Short:  "Diagnostics",
		Hidden: true,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "Print the client metrics of this invocation in Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.auth.CheckStatus(cmd.Context()); err != nil {
				observability.Logger().DebugContext(cmd.Context(), "status check before metrics dump failed")
			}
			return observability.WriteMetrics(a.io.Out)
		},
	})
	return cmd
}
