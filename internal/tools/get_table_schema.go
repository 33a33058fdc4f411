package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetTableSchemaInput are the arguments of get-table-schema.
type GetTableSchemaInput struct {
	KustoClusterURL string `json:"kusto_cluster_url" jsonschema:"Direct Kusto cluster URL (e.g. 'https://mycluster.eastus.kusto.windows.net')"`
	Database        string `json:"database" jsonschema:"Database name"`
	TableName       string `json:"table_name" jsonschema:"Name of the table to get schema for"`
	UserAssertion   string `json:"user_assertion,omitempty" jsonschema:"User access token, required in delegated auth mode"`
}

// GetTableSchema returns the columns of a table, or a not-found message.
func (t *Toolset) GetTableSchema(ctx context.Context, _ *mcp.CallToolRequest, in GetTableSchemaInput) (*mcp.CallToolResult, any, error) {
	const op = "getting table schema"
	t.logger.Debug("starting getTableSchema", slog.String("table", in.TableName), slog.String("database", in.Database))

	eng, err := t.engine(ctx, in.KustoClusterURL, in.UserAssertion)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	result, err := eng.GetTableSchema(ctx, in.Database, in.TableName)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	if result == nil {
		return textResult(fmt.Sprintf("Table '%s' not found", in.TableName)), nil, nil
	}
	return t.jsonResult(result, op)
}
