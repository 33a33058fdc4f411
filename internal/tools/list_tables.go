package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListTablesInput are the arguments of list-tables.
type ListTablesInput struct {
	KustoClusterURL string `json:"kusto_cluster_url" jsonschema:"Direct Kusto cluster URL (e.g. 'https://mycluster.eastus.kusto.windows.net')"`
	Database        string `json:"database" jsonschema:"Database name"`
	UserAssertion   string `json:"user_assertion,omitempty" jsonschema:"User access token, required in delegated auth mode"`
}

// ListTables lists the tables of a database.
func (t *Toolset) ListTables(ctx context.Context, _ *mcp.CallToolRequest, in ListTablesInput) (*mcp.CallToolResult, any, error) {
	const op = "listing tables"

	eng, err := t.engine(ctx, in.KustoClusterURL, in.UserAssertion)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	result, err := eng.ListTables(ctx, in.Database)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	return t.jsonResult(result, op)
}
