package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// CallOptions holds options for the call command.
type CallOptions struct {
	targetOptions
	Args     []string
	ArgsJSON string
	Pipeline string
}

// NewCallCommand creates the call command.
func NewCallCommand() *cobra.Command {
	opts := &CallOptions{}

	cmd := &cobra.Command{
		Use:   "call <function>",
		Short: "Call a stored function with parameters",
		Long: `Call a stored function with arguments bound as query parameters.

Required parameters are checked against the function's declaration before the
call. An optional pipeline is appended to the call and must start with '|'.`,
		Example: `  # Call with named arguments
  mcp-kusto-server call GetEvents -c $CLUSTER -d Samples --arg startTime=2024-01-01T00:00:00Z --arg limit=10

  # Pass arguments as JSON and post-process the result
  mcp-kusto-server call GetEvents -c $CLUSTER -d Samples --args-json '{"limit": 5}' --pipeline "| project Name"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, args[0], opts)
		},
	}

	addTargetFlags(cmd, &opts.targetOptions, true)
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "Function argument as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.ArgsJSON, "args-json", "", "Function arguments as a JSON object")
	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "KQL pipeline applied to the function result")

	return cmd
}

func runCall(cmd *cobra.Command, function string, opts *CallOptions) error {
	args, err := parseCallArgs(opts.ArgsJSON, opts.Args)
	if err != nil {
		return err
	}

	cmdCtx, eng, err := openEngine(cmd, &opts.targetOptions)
	if err != nil {
		return err
	}

	if err := eng.VerifyFunctionParams(cmd.Context(), opts.Database, function, args); err != nil {
		return err
	}
	result, err := eng.ExecuteFunction(cmd.Context(), opts.Database, function, args, opts.Pipeline)
	if err != nil {
		return fmt.Errorf("function call failed: %w", err)
	}
	return cmdCtx.Renderer.QueryResult(result)
}

// parseCallArgs merges --args-json with --arg pairs; pairs win on conflict.
// Pair values that parse as JSON keep their JSON type.
func parseCallArgs(argsJSON string, pairs []string) (map[string]any, error) {
	args := make(map[string]any)
	if argsJSON != "" {
		dec := json.NewDecoder(strings.NewReader(argsJSON))
		dec.UseNumber()
		if err := dec.Decode(&args); err != nil {
			return nil, fmt.Errorf("invalid --args-json: %w", err)
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --arg %q: expected name=value", pair)
		}
		args[strings.TrimSpace(name)] = pairValue(value)
	}
	return args, nil
}

func pairValue(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	switch v.(type) {
	case json.Number, bool:
		return v
	default:
		return s
	}
}
