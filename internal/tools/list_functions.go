package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListFunctionsInput are the arguments of list-functions.
type ListFunctionsInput struct {
	KustoClusterURL string `json:"kusto_cluster_url" jsonschema:"Direct Kusto cluster URL (e.g. 'https://mycluster.eastus.kusto.windows.net')"`
	Database        string `json:"database" jsonschema:"Database name"`
	UserAssertion   string `json:"user_assertion,omitempty" jsonschema:"User access token, required in delegated auth mode"`
}

// ListFunctions lists the stored functions of a database.
func (t *Toolset) ListFunctions(ctx context.Context, _ *mcp.CallToolRequest, in ListFunctionsInput) (*mcp.CallToolResult, any, error) {
	const op = "listing functions"

	eng, err := t.engine(ctx, in.KustoClusterURL, in.UserAssertion)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	result, err := eng.ListFunctions(ctx, in.Database)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	return t.jsonResult(result, op)
}
