package commands

import (
	"fmt"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
environment variables and flags. Secrets are redacted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig().Redacted()
			if file := config.GetConfigFileUsed(); file != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", file)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	}
}
