// Package tools exposes the engine operations as MCP tools.
//
// Every handler resolves an executor for the cluster named in its arguments,
// runs one engine operation and renders the outcome as JSON text. Domain
// failures are returned as tool results with IsError set, never as protocol
// errors.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/auth"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/engine"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	RunQuery          = "run-query"
	CallFunction      = "call-function"
	ListTables        = "list-tables"
	ListFunctions     = "list-functions"
	ListDatabases     = "list-databases"
	GetTableSchema    = "get-table-schema"
	GetFunctionSchema = "get-function-schema"
)

// betaTools are registered only when beta tools are enabled.
var betaTools = map[string]bool{
	ListTables:     true,
	CallFunction:   true,
	GetTableSchema: true,
}

// Names returns the tool names registered for the given beta setting, in
// registration order.
func Names(enableBeta bool) []string {
	all := []string{RunQuery, ListFunctions, GetFunctionSchema, ListDatabases, ListTables, CallFunction, GetTableSchema}
	names := make([]string, 0, len(all))
	for _, n := range all {
		if enableBeta || !betaTools[n] {
			names = append(names, n)
		}
	}
	return names
}

// ExecutorProvider supplies an authenticated executor for one request.
type ExecutorProvider interface {
	Executor(ctx context.Context, target auth.Target) (adapter.Executor, error)
}

// Toolset binds tool handlers to their dependencies.
type Toolset struct {
	provider  ExecutorProvider
	engineCfg engine.Config
	logger    *slog.Logger
}

// NewToolset creates a toolset.
// If logger is nil, a discard logger is used.
func NewToolset(provider ExecutorProvider, cfg engine.Config, logger *slog.Logger) *Toolset {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Toolset{provider: provider, engineCfg: cfg, logger: logger}
}

// Register adds the tools to server. Beta tools are added only when enableBeta is set.
func Register(server *mcp.Server, ts *Toolset, enableBeta bool) error {
	adders := map[string]func(desc string){
		RunQuery:          func(d string) { mcp.AddTool(server, &mcp.Tool{Name: RunQuery, Description: d}, ts.RunQuery) },
		ListFunctions:     func(d string) { mcp.AddTool(server, &mcp.Tool{Name: ListFunctions, Description: d}, ts.ListFunctions) },
		GetFunctionSchema: func(d string) { mcp.AddTool(server, &mcp.Tool{Name: GetFunctionSchema, Description: d}, ts.GetFunctionSchema) },
		ListDatabases:     func(d string) { mcp.AddTool(server, &mcp.Tool{Name: ListDatabases, Description: d}, ts.ListDatabases) },
		ListTables:        func(d string) { mcp.AddTool(server, &mcp.Tool{Name: ListTables, Description: d}, ts.ListTables) },
		CallFunction:      func(d string) { mcp.AddTool(server, &mcp.Tool{Name: CallFunction, Description: d}, ts.CallFunction) },
		GetTableSchema:    func(d string) { mcp.AddTool(server, &mcp.Tool{Name: GetTableSchema, Description: d}, ts.GetTableSchema) },
	}

	for _, name := range Names(enableBeta) {
		desc, err := Description(name)
		if err != nil {
			return err
		}
		adders[name](desc)
	}
	ts.logger.Debug("tools registered", slog.Bool("beta", enableBeta), slog.Int("count", len(Names(enableBeta))))
	return nil
}

// engine binds a fresh engine to the cluster named by the request.
func (t *Toolset) engine(ctx context.Context, clusterURL, userAssertion string) (*engine.Engine, error) {
	exec, err := t.provider.Executor(ctx, auth.Target{ClusterURL: clusterURL, UserAssertion: userAssertion})
	if err != nil {
		return nil, err
	}
	return engine.New(exec, t.engineCfg, t.logger)
}

// =============================================================================
// Responses
// =============================================================================

// Error kinds reported in error payloads.
const (
	KindValidation = "validation"
	KindTimeout    = "timeout"
	KindNotFound   = "not_found"
	KindAuth       = "auth"
	KindUpstream   = "upstream"
)

type errorPayload struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Operation string `json:"operation"`
}

// textResult wraps text as a successful tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// jsonResult renders data as indented JSON.
func (t *Toolset) jsonResult(data any, operation string) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return t.errorResult(err, operation), nil, nil
	}
	return textResult(string(b)), nil, nil
}

// errorResult renders err as an IsError tool result.
func (t *Toolset) errorResult(err error, operation string) *mcp.CallToolResult {
	payload := errorPayload{Error: err.Error(), Kind: ErrorKind(err), Operation: operation}
	t.logger.Error(operation+" failed", slog.String("kind", payload.Kind), slog.String("error", payload.Error))

	b, mErr := json.MarshalIndent(payload, "", "  ")
	text := string(b)
	if mErr != nil {
		text = "Error during " + operation
	}
	res := textResult(text)
	res.IsError = true
	return res
}

// ErrorKind classifies err for error payloads.
func ErrorKind(err error) string {
	var (
		verr *engine.ValidationError
		terr *engine.TimeoutError
		nerr *engine.NotFoundError
	)
	switch {
	case errors.As(err, &verr), errors.Is(err, auth.ErrClusterRequired):
		return KindValidation
	case errors.As(err, &terr):
		return KindTimeout
	case errors.As(err, &nerr):
		return KindNotFound
	case errors.Is(err, auth.ErrAssertionRequired), errors.Is(err, auth.ErrAssertionExpired):
		return KindAuth
	default:
		return KindUpstream
	}
}
