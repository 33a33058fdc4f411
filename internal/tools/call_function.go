package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CallFunctionInput are the arguments of call-function.
type CallFunctionInput struct {
	KustoClusterURL string         `json:"kusto_cluster_url" jsonschema:"Direct Kusto cluster URL (e.g. 'https://mycluster.eastus.kusto.windows.net')"`
	Database        string         `json:"database" jsonschema:"Database name"`
	FunctionName    string         `json:"function_name" jsonschema:"Name of the stored function to execute"`
	Arguments       map[string]any `json:"arguments,omitempty" jsonschema:"Arguments to pass to the function as key-value pairs"`
	Pipeline        string         `json:"pipeline,omitempty" jsonschema:"Optional KQL pipeline operations to apply to function results (must start with '|')"`
	UserAssertion   string         `json:"user_assertion,omitempty" jsonschema:"User access token, required in delegated auth mode"`
}

// CallFunction verifies the arguments against the function's declared
// parameters, then calls it.
func (t *Toolset) CallFunction(ctx context.Context, _ *mcp.CallToolRequest, in CallFunctionInput) (*mcp.CallToolResult, any, error) {
	const op = "calling function"

	eng, err := t.engine(ctx, in.KustoClusterURL, in.UserAssertion)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}

	args := in.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if err := eng.VerifyFunctionParams(ctx, in.Database, in.FunctionName, args); err != nil {
		return t.errorResult(err, op), nil, nil
	}

	result, err := eng.ExecuteFunction(ctx, in.Database, in.FunctionName, args, in.Pipeline)
	if err != nil {
		return t.errorResult(err, op), nil, nil
	}
	return t.jsonResult(result, op)
}
