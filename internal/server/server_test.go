package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/auth"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/engine"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/testutil"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/tools"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticExecutor struct {
	resp *adapter.Response
}

func (e staticExecutor) Execute(context.Context, string, string, *adapter.RequestProperties) (*adapter.Response, error) {
	return e.resp, nil
}

type staticProvider struct {
	exec adapter.Executor
}

func (p staticProvider) Executor(context.Context, auth.Target) (adapter.Executor, error) {
	return p.exec, nil
}

func newTestServer(t *testing.T, enableBeta bool) *Server {
	t.Helper()
	exec := staticExecutor{resp: &adapter.Response{PrimaryResults: []*adapter.Table{{
		Kind:    "PrimaryResult",
		Columns: []adapter.ResultColumn{{Name: "Name", Type: "string"}},
		Rows:    [][]any{{"alpha"}},
	}}}}
	logger := testutil.NewTestLogger(t)
	ts := tools.NewToolset(staticProvider{exec: exec}, engine.Config{
		Limits:   core.DefaultQueryLimits(),
		Timeouts: core.DefaultQueryTimeouts(),
	}, logger)
	return New(Config{Toolset: ts, Version: "test", EnableBeta: enableBeta, Host: "127.0.0.1", Logger: logger})
}

func TestHandler_Routes(t *testing.T) {
	handler, err := newTestServer(t, false).Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK, "ok"},
		{"get mcp", http.MethodGet, "/mcp", http.StatusMethodNotAllowed, `{"jsonrpc":"2.0","error":{"code":-32000,"message":"Method not allowed."},"id":null}`},
		{"delete mcp", http.MethodDelete, "/mcp", http.StatusMethodNotAllowed, `{"jsonrpc":"2.0","error":{"code":-32000,"message":"Method not allowed."},"id":null}`},
		{"unknown", http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody == "" {
				return
			}
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if json.Valid([]byte(tt.wantBody)) {
				assert.JSONEq(t, tt.wantBody, string(body))
			} else {
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestHandler_StreamableClient(t *testing.T) {
	handler, err := newTestServer(t, true).Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: srv.URL + "/mcp"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	list, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	assert.Len(t, list.Tools, len(tools.Names(true)))

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name: tools.RunQuery,
		Arguments: map[string]any{
			"kusto_cluster_url": "https://mycluster.eastus.kusto.windows.net",
			"database":          "db",
			"query":             "Names | take 1",
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"Name": "alpha"`)
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(t, false)
	handler, err := s.Handler()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serveListener(ctx, ln, handler) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
