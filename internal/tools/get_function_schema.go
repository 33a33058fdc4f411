package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetFunctionSchemaInput are the arguments of get-function-schema.
type GetFunctionSchemaInput struct {
	KustoClusterURL string `json:"kusto_cluster_url" jsonschema:"Direct Kusto cluster URL (e.g. 'https://mycluster.eastus.kusto.windows.net')"`
	Database        string `json:"database" jsonschema:"Database name"`
	FunctionName    string `json:"functionName" jsonschema:"Name of the function to get schema for"`
	UserAssertion   string `json:"user_assertion,omitempty" jsonschema:"User access token, required in delegated auth mode"`
}

// GetFunctionSchema returns the parameters and output columns of a function,
// or a not-found message.
func (t *Toolset) GetFunctionSchema(ctx context.Context, _ *mcp.CallToolRequest, in GetFunctionSchemaInput) (*mcp.CallToolResult, any, error) {
	const op = "getting function schema"

	eng, err := t.engine(ctx, in.KustoClusterURL, in.UserAssertion)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	result, err := eng.GetFunctionSchema(ctx, in.Database, in.FunctionName)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	if result == nil {
		return textResult(fmt.Sprintf("Function '%s' not found", in.FunctionName)), nil, nil
	}
	return t.jsonResult(result, op)
}
