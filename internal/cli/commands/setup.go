package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/auth"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/cli/config"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/engine"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/tools"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Provider tools.ExecutorProvider
	Renderer *Renderer
}

// NewCommandContext creates a CommandContext with a credential provider and renderer.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Provider: provider,
		Renderer: NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Output),
	}, nil
}

// Engine binds an engine to the target cluster.
func (c *CommandContext) Engine(ctx context.Context, target auth.Target) (*engine.Engine, error) {
	exec, err := c.Provider.Executor(ctx, target)
	if err != nil {
		return nil, err
	}
	return engine.New(exec, c.Cfg.EngineConfig(), c.Logger)
}

// Helper functions shared across commands

// getConfig returns the current configuration, loading it from the
// environment when no command has loaded it yet.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return &config.Config{Output: config.DefaultOutput}
	}
	return cfg
}

// newProvider validates credentials and builds the executor provider.
func newProvider(cfg *config.Config, logger *slog.Logger) (*auth.Provider, error) {
	authCfg := cfg.AuthSettings()
	if err := authCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}
	return auth.NewProvider(authCfg, auth.Options{
		AdapterType:   cfg.Adapter.Type,
		AdapterParams: cfg.Adapter.Params,
		Application:   cfg.Adapter.Application,
		HTTPClient:    http.DefaultClient,
	}, logger), nil
}

// targetOptions are the cluster selection flags shared by data commands.
type targetOptions struct {
	Cluster       string
	Database      string
	UserAssertion string
}

func (o *targetOptions) target() auth.Target {
	return auth.Target{ClusterURL: o.Cluster, UserAssertion: o.UserAssertion}
}

func addTargetFlags(cmd *cobra.Command, opts *targetOptions, withDatabase bool) {
	cmd.Flags().StringVarP(&opts.Cluster, "cluster", "c", os.Getenv("KUSTO_CLUSTER_URL"), "Kusto cluster URL (env KUSTO_CLUSTER_URL)")
	if withDatabase {
		cmd.Flags().StringVarP(&opts.Database, "database", "d", os.Getenv("KUSTO_DATABASE"), "Database name (env KUSTO_DATABASE)")
	}
	cmd.Flags().StringVar(&opts.UserAssertion, "user-assertion", "", "User access token for delegated auth")
}

// openEngine builds the command context and binds an engine to opts.
func openEngine(cmd *cobra.Command, opts *targetOptions) (*CommandContext, *engine.Engine, error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	eng, err := cmdCtx.Engine(cmd.Context(), opts.target())
	if err != nil {
		return nil, nil, err
	}
	return cmdCtx, eng, nil
}
