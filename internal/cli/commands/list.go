package commands

import (
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tables, functions or databases",
		Long: `List the tables or stored functions of a database, or the databases of a cluster.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: JSON

Use --output to override: auto, table, json, csv, md`,
	}

	cmd.AddCommand(newListTablesCommand())
	cmd.AddCommand(newListFunctionsCommand())
	cmd.AddCommand(newListDatabasesCommand())

	return cmd
}

func newListTablesCommand() *cobra.Command {
	opts := &targetOptions{}
	cmd := &cobra.Command{
		Use:     "tables",
		Short:   "List the tables of a database",
		Example: `  mcp-kusto-server list tables -c $CLUSTER -d Samples`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, eng, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			res, err := eng.ListTables(cmd.Context(), opts.Database)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			if r.Format() == FormatJSON {
				return r.JSON(res)
			}
			rows := make([][]any, len(res.Tables))
			for i, t := range res.Tables {
				rows[i] = []any{t.Folder, t.Name, t.DatabaseName, t.Description}
			}
			r.Rows([]string{"Folder", "Name", "Database", "Description"}, rows)
			return nil
		},
	}
	addTargetFlags(cmd, opts, true)
	return cmd
}

func newListFunctionsCommand() *cobra.Command {
	opts := &targetOptions{}
	cmd := &cobra.Command{
		Use:     "functions",
		Short:   "List the stored functions of a database",
		Example: `  mcp-kusto-server list functions -c $CLUSTER -d Samples -o md`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, eng, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			res, err := eng.ListFunctions(cmd.Context(), opts.Database)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			if r.Format() == FormatJSON {
				return r.JSON(res)
			}
			rows := make([][]any, len(res.Functions))
			for i, f := range res.Functions {
				rows[i] = []any{f.Folder, f.Name, f.Description}
			}
			r.Rows([]string{"Folder", "Name", "Description"}, rows)
			return nil
		},
	}
	addTargetFlags(cmd, opts, true)
	return cmd
}

func newListDatabasesCommand() *cobra.Command {
	opts := &targetOptions{}
	cmd := &cobra.Command{
		Use:     "databases",
		Short:   "List the databases of a cluster",
		Example: `  mcp-kusto-server list databases -c $CLUSTER`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, eng, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			res, err := eng.ListDatabases(cmd.Context())
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			if r.Format() == FormatJSON {
				return r.JSON(res)
			}
			rows := make([][]any, len(res.Databases))
			for i, d := range res.Databases {
				rows[i] = []any{d.Name, d.Description}
			}
			r.Rows([]string{"Name", "Description"}, rows)
			return nil
		},
	}
	addTargetFlags(cmd, opts, false)
	return cmd
}
