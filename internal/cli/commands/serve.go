package commands

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/server"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/tools"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server over streamable HTTP or stdio.

Over HTTP every POST /mcp request is served statelessly. GET and DELETE on
/mcp are rejected with 405. Tool calls name the target cluster in their
arguments; credentials come from the auth section of the configuration.

Beta tools (list-tables, call-function, get-table-schema) are registered
only when features.enable_beta_tools is set.`,
		Example: `  # Serve over HTTP on port 3000
  mcp-kusto-server serve

  # Serve over stdio for a local MCP client
  mcp-kusto-server serve --transport stdio

  # Enable beta tools on a custom port
  mcp-kusto-server serve --port 8080 --enable-beta-tools`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, version)
		},
	}

	// Bound to config keys by the loader; defaults live in the config layer.
	cmd.Flags().String("transport", "", "Transport: http or stdio")
	cmd.Flags().String("host", "", "HTTP listen host")
	cmd.Flags().Int("port", 0, "HTTP listen port")
	cmd.Flags().Bool("enable-beta-tools", false, "Register beta tools")
	cmd.Flags().String("auth-mode", "", "Auth mode: application, delegated or none")

	return cmd
}

func runServe(cmd *cobra.Command, version string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Toolset:    tools.NewToolset(cmdCtx.Provider, cfg.EngineConfig(), logger),
		Version:    version,
		EnableBeta: cfg.Features.EnableBetaTools,
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		Logger:     logger,
	})

	logger.Info("Azure Kusto MCP Server initialized",
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("transport", cfg.Server.Transport))

	if cfg.Server.Transport == server.TransportStdio {
		return srv.RunStdio(ctx)
	}
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
