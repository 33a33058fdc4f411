package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the schema of a table or stored function",
	}

	cmd.AddCommand(newSchemaTableCommand())
	cmd.AddCommand(newSchemaFunctionCommand())

	return cmd
}

func newSchemaTableCommand() *cobra.Command {
	opts := &targetOptions{}
	cmd := &cobra.Command{
		Use:     "table <name>",
		Short:   "Show the columns of a table",
		Example: `  mcp-kusto-server schema table StormEvents -c $CLUSTER -d Samples`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, eng, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			res, err := eng.GetTableSchema(cmd.Context(), opts.Database, args[0])
			if err != nil {
				return err
			}
			if res == nil {
				return fmt.Errorf("table %q not found", args[0])
			}

			r := cmdCtx.Renderer
			if r.Format() == FormatJSON {
				return r.JSON(res)
			}
			rows := make([][]any, len(res.Schema.Columns))
			for i, c := range res.Schema.Columns {
				rows[i] = []any{c.Name, c.Type}
			}
			if r.Format() == FormatTable {
				r.Text("Table: " + res.Schema.Name)
			}
			r.Rows([]string{"Column", "Type"}, rows)
			return nil
		},
	}
	addTargetFlags(cmd, opts, true)
	return cmd
}

func newSchemaFunctionCommand() *cobra.Command {
	opts := &targetOptions{}
	cmd := &cobra.Command{
		Use:     "function <name>",
		Short:   "Show the parameters and output columns of a stored function",
		Example: `  mcp-kusto-server schema function GetEvents -c $CLUSTER -d Samples`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, eng, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			res, err := eng.GetFunctionSchema(cmd.Context(), opts.Database, args[0])
			if err != nil {
				return err
			}
			if res == nil {
				return fmt.Errorf("function %q not found", args[0])
			}

			r := cmdCtx.Renderer
			if r.Format() == FormatJSON {
				return r.JSON(res)
			}

			params := make([][]any, len(res.Parameters))
			for i, p := range res.Parameters {
				def := ""
				if p.HasDefaultValue {
					def = p.DefaultValue
				}
				params[i] = []any{p.Name, p.Type, def}
			}
			output := make([][]any, len(res.OutputSchema))
			for i, c := range res.OutputSchema {
				output[i] = []any{c.Name, c.Type, c.Description}
			}

			r.Text("Function: " + res.Name)
			r.Rows([]string{"Parameter", "Type", "Default"}, params)
			r.Text("")
			r.Rows([]string{"Column", "Type", "Description"}, output)
			return nil
		},
	}
	addTargetFlags(cmd, opts, true)
	return cmd
}
