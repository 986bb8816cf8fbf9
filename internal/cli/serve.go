package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tfg-report-server/internal/api"
	"github.com/tfg-report-server/internal/mcp"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP form and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.bootstrap("api")
			if err != nil {
				return err
			}
			defer a.Close()

			stopPruner, err := a.startPruner()
			if err != nil {
				return err
			}
			defer stopPruner()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := a.manager.GetServerConfig()
			a.logger.WithField("port", cfg.Port).Info("Starting TFG report server")

			if err := api.NewServer(a.manager, a.logger, a.service).Start(ctx); err != nil {
				return err
			}
			a.logger.Info("Server stopped")
			return nil
		},
	}
}

func newMCPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP tool server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.bootstrap("mcp")
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := mcp.NewServer(a.manager.GetConfig().MCP, a.logger, a.service)
			return server.Start(ctx)
		},
	}
}
