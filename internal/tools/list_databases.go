package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListDatabasesInput are the arguments of list-databases.
type ListDatabasesInput struct {
	KustoClusterURL string `json:"kusto_cluster_url" jsonschema:"Direct Kusto cluster URL (e.g. 'https://mycluster.eastus.kusto.windows.net')"`
	UserAssertion   string `json:"user_assertion,omitempty" jsonschema:"User access token, required in delegated auth mode"`
}

// ListDatabases lists the databases of a cluster.
func (t *Toolset) ListDatabases(ctx context.Context, _ *mcp.CallToolRequest, in ListDatabasesInput) (*mcp.CallToolResult, any, error) {
	const op = "listing databases"

	eng, err := t.engine(ctx, in.KustoClusterURL, in.UserAssertion)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	result, err := eng.ListDatabases(ctx)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	return t.jsonResult(result, op)
}
