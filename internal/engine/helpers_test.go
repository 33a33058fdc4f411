package engine

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

// executedCall records one statement seen by fakeExecutor.
type executedCall struct {
	Database  string
	Statement string
	Props     adapter.RequestProperties
}

// fakeExecutor answers statements through respond and records every call.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []executedCall
	respond func(statement string) (*adapter.Response, error)
}

func (f *fakeExecutor) Execute(_ context.Context, database, statement string, props *adapter.RequestProperties) (*adapter.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, executedCall{Database: database, Statement: statement, Props: *props})
	f.mu.Unlock()
	return f.respond(statement)
}

func (f *fakeExecutor) Calls() []executedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executedCall(nil), f.calls...)
}

// table builds a single-table response.
func table(columns []adapter.ResultColumn, rows ...[]any) *adapter.Response {
	if rows == nil {
		rows = [][]any{}
	}
	return &adapter.Response{PrimaryResults: []*adapter.Table{{
		Name:    "PrimaryResult",
		Kind:    "PrimaryResult",
		Columns: columns,
		Rows:    rows,
	}}}
}

// numberedRows builds n single-column rows of type long.
func numberedRows(n int) *adapter.Response {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{json.Number(jsonInt(i))}
	}
	return table([]adapter.ResultColumn{{Name: "n", Type: "long"}}, rows...)
}

func jsonInt(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func testConfig() Config {
	return Config{Limits: core.DefaultQueryLimits(), Timeouts: core.DefaultQueryTimeouts()}
}
