package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

// Listing statements.
const (
	listTablesStatement    = ".show tables | project Folder, TableName, DatabaseName, DocString | order by TableName asc"
	listFunctionsStatement = ".show functions | project Folder, Name, DocString | order by Name asc"
	listDatabasesStatement = ".show databases | project DatabaseName, PrettyName | order by DatabaseName asc"
)

// TableSchemaStatement builds the introspection statement for table. The
// result has one row with TableName and Schema, or none if the table is absent.
func TableSchemaStatement(table string) (string, error) {
	if strings.TrimSpace(table) == "" || strings.ContainsAny(table, "\r\n") {
		return "", validationError(ErrInvalidIdentifier, "Invalid table name '%s'", table)
	}
	return fmt.Sprintf(`.show table [%s] schema as json
| extend cols = todynamic(Schema).OrderedColumns
| mv-expand col = cols
| project TableName = %s,
          name = tostring(col.Name),
          type = tostring(col.CslType)
| summarize TableName = any(TableName),
            Schema = make_list(bag_pack('name', name, 'type', type))`,
		quoteSingle(table), quoteDouble(table)), nil
}

// FunctionParametersStatement builds the statement returning the declared
// parameter list of function.
func FunctionParametersStatement(function string) (string, error) {
	if err := ValidateFunctionName(function); err != nil {
		return "", err
	}
	return fmt.Sprintf(".show function %s | project Name, Parameters", function), nil
}

// OutputSchemaStatement wraps a function call so that it returns the call's
// output columns joined with their best known description. Descriptions
// scoped to function win over global ones.
func OutputSchemaStatement(function string, inv Invocation) string {
	var prefix string
	if inv.declaration != "" {
		prefix = inv.declaration + "\n"
	}
	return prefix + fmt.Sprintf(`let schemaColumns =
    %s
    | getschema
    | project ColumnName, ColumnType;
let columnDescriptions =
    union kind=outer isfuzzy=true
        (ColumnDictionary | where TableName == %s | project ColumnName, Description, priority=int(1)),
        (ColumnDictionary | where isempty(TableName) | project ColumnName, Description, priority=int(0)),
        (datatable(ColumnName:string, Description:string, priority:int)[]);
let prioritizedDescriptions =
    columnDescriptions
    | summarize arg_max(priority, *) by ColumnName
    | project ColumnName, Description;
schemaColumns
| lookup kind=leftouter prioritizedDescriptions on ColumnName`,
		inv.call, quoteDouble(function))
}

// parseSchemaColumns reads the Schema cell of a table schema row. The cell
// arrives either decoded or as JSON text.
func parseSchemaColumns(v any) ([]core.Column, error) {
	if s, ok := v.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode schema: %w", err)
		}
		v = decoded
	}

	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return []core.Column{}, nil
		}
		return nil, fmt.Errorf("unexpected schema value of type %T", v)
	}

	columns := make([]core.Column, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected schema entry of type %T", item)
		}
		columns = append(columns, core.Column{
			Name: stringValue(m["name"]),
			Type: stringValue(m["type"]),
		})
	}
	return columns, nil
}

// mapOutputSchema converts getschema rows into output columns.
func mapOutputSchema(rows []core.Row) []core.OutputColumn {
	out := make([]core.OutputColumn, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.OutputColumn{
			Name:        stringValue(row["ColumnName"]),
			Type:        stringValue(row["ColumnType"]),
			Description: stringValue(row["Description"]),
		})
	}
	return out
}

// stringValue renders a cell as text; nil becomes "".
func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func quoteSingle(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func quoteDouble(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
