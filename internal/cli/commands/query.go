package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	targetOptions
	Input string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [KQL]",
		Short: "Run a KQL query against a cluster",
		Long: `Run a KQL query and print the governed result.

Results pass through the same row-count tiers as the run-query tool:
large results carry a warning, results above the hard limit are truncated.
The query is read from the arguments, from --input, or from piped stdin.`,
		Example: `  # Run a query
  mcp-kusto-server query -c https://help.kusto.windows.net -d Samples "StormEvents | take 5"

  # Read the query from a file
  mcp-kusto-server query -c $CLUSTER -d Samples --input query.kql

  # Output as CSV
  mcp-kusto-server query -c $CLUSTER -d Samples "StormEvents | count" -o csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	addTargetFlags(cmd, &opts.targetOptions, true)
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read KQL from file")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	query, err := readQuery(cmd, args, opts.Input)
	if err != nil {
		return err
	}

	cmdCtx, eng, err := openEngine(cmd, &opts.targetOptions)
	if err != nil {
		return err
	}

	result, err := eng.ExecuteQuery(cmd.Context(), opts.Database, query)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return cmdCtx.Renderer.QueryResult(result)
}

// readQuery picks the query source: arguments, then --input, then piped stdin.
func readQuery(cmd *cobra.Command, args []string, input string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case input != "":
		content, err := os.ReadFile(input)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", fmt.Errorf("no query given: pass KQL as an argument, with --input, or on stdin")
	}
	content, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return "", fmt.Errorf("no query given: pass KQL as an argument, with --input, or on stdin")
	}
	return string(content), nil
}
