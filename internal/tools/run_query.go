package tools

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RunQueryInput are the arguments of run-query.
type RunQueryInput struct {
	KustoClusterURL string `json:"kusto_cluster_url" jsonschema:"Direct Kusto cluster URL (e.g. 'https://mycluster.eastus.kusto.windows.net')"`
	Database        string `json:"database" jsonschema:"Database name"`
	Query           string `json:"query" jsonschema:"KQL query to execute"`
	UserAssertion   string `json:"user_assertion,omitempty" jsonschema:"User access token, required in delegated auth mode"`
}

// RunQuery executes a query and returns the governed result.
func (t *Toolset) RunQuery(ctx context.Context, _ *mcp.CallToolRequest, in RunQueryInput) (*mcp.CallToolResult, any, error) {
	const op = "executing query"
	t.logger.Debug("starting query execution", slog.Int("query_length", len(in.Query)))

	eng, err := t.engine(ctx, in.KustoClusterURL, in.UserAssertion)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	result, err := eng.ExecuteQuery(ctx, in.Database, in.Query)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	return t.jsonResult(result, op)
}
