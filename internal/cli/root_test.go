package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/cli/config"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/cli/testutil"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapters/kusto"
)

// isolate runs the test in an empty directory with unauthenticated access
// and no inherited configuration.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range []string{
		"QUERY_WARNING_THRESHOLD", "QUERY_SOFT_LIMIT", "QUERY_HARD_LIMIT",
		"QUERY_TIMEOUT_DEFAULT", "QUERY_TIMEOUT_METADATA", "QUERY_TIMEOUT_QUERY", "QUERY_TIMEOUT_MAXIMUM",
		"ENABLE_BETA_TOOLS", "PORT", "AZURE_AUTH_MODE", "AZURE_TENANT_ID", "AZURE_CLIENT_ID",
		"AZURE_CLIENT_SECRET", "AZURE_AUTHORITY_HOST", "KUSTO_CLUSTER_URL", "KUSTO_DATABASE",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("KUSTO_MCP_AUTH__MODE", "none")
	config.ResetConfig()
	return dir
}

func stormEvents(statement string) testutil.Result {
	switch {
	case strings.HasPrefix(statement, ".show databases"):
		return testutil.Result{
			Columns: []testutil.Column{{Name: "DatabaseName", Type: "string"}, {Name: "PrettyName", Type: "string"}},
			Rows:    [][]any{{"Samples", "Sample data"}},
		}
	case strings.HasPrefix(statement, ".show function GetStorms"):
		return testutil.Result{
			Columns: []testutil.Column{{Name: "Name", Type: "string"}, {Name: "Parameters", Type: "string"}},
			Rows:    [][]any{{"GetStorms", "(state:string, limit:int = 10)"}},
		}
	case strings.HasPrefix(statement, ".show function"), strings.HasPrefix(statement, ".show table"):
		return testutil.Result{Columns: []testutil.Column{{Name: "Name", Type: "string"}}}
	case strings.Contains(statement, "bad syntax"):
		return testutil.Result{Error: "Syntax error: unexpected token"}
	default:
		return testutil.Result{
			Columns: []testutil.Column{{Name: "State", Type: "string"}, {Name: "EventCount", Type: "long"}},
			Rows:    [][]any{{"TEXAS", 12}, {"KANSAS", 7}},
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mcp-kusto-server v")
}

func TestHelpCommand(t *testing.T) {
	out, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "--help")
	require.NoError(t, err)
	testutil.AssertContains(t, out, "serve", "query", "call", "list", "schema", "config", "version")
}

func TestQueryCommand(t *testing.T) {
	isolate(t)
	cluster := testutil.NewFakeCluster(t, stormEvents)

	out, _, err := testutil.ExecuteCommand(t, NewRootCmd(),
		"query", "--cluster", cluster.URL, "--database", "Samples", "StormEvents", "|", "summarize", "count()", "by", "State")
	require.NoError(t, err)

	var res core.QueryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, "TEXAS", res.Rows[0]["State"])

	reqs := cluster.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/v2/rest/query", reqs[0].Path)
	assert.Equal(t, "Samples", reqs[0].Database)
	assert.Equal(t, "StormEvents | summarize count() by State", reqs[0].Statement)
}

func TestQueryCommand_Formats(t *testing.T) {
	isolate(t)
	cluster := testutil.NewFakeCluster(t, stormEvents)

	out, _, err := testutil.ExecuteCommand(t, NewRootCmd(),
		"query", "-c", cluster.URL, "-d", "Samples", "-o", "csv", "StormEvents | take 2")
	require.NoError(t, err)
	testutil.AssertContains(t, out, "TEXAS,12", "KANSAS,7")
}

func TestQueryCommand_FromFile(t *testing.T) {
	dir := isolate(t)
	cluster := testutil.NewFakeCluster(t, stormEvents)
	path := filepath.Join(dir, "q.kql")
	require.NoError(t, os.WriteFile(path, []byte("StormEvents | take 2"), 0o600))

	_, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "query", "-c", cluster.URL, "-d", "Samples", "--input", path)
	require.NoError(t, err)
	assert.Equal(t, "StormEvents | take 2", cluster.Requests()[0].Statement)
}

func TestQueryCommand_Errors(t *testing.T) {
	isolate(t)
	cluster := testutil.NewFakeCluster(t, stormEvents)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing cluster", []string{"query", "-d", "Samples", "T"}, "kusto_cluster_url"},
		{"service rejection", []string{"query", "-c", cluster.URL, "-d", "Samples", "bad syntax"}, "Syntax error"},
		{"invalid output", []string{"query", "-c", cluster.URL, "-o", "xml", "T"}, "output must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := testutil.ExecuteCommand(t, NewRootCmd(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCallCommand(t *testing.T) {
	isolate(t)
	cluster := testutil.NewFakeCluster(t, stormEvents)

	out, _, err := testutil.ExecuteCommand(t, NewRootCmd(),
		"call", "GetStorms", "-c", cluster.URL, "-d", "Samples", "--arg", "state=TEXAS", "--pipeline", "| take 1")
	require.NoError(t, err)
	assert.Contains(t, out, `"rowCount": 2`)

	reqs := cluster.Requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/v2/rest/query", last.Path)
	assert.Contains(t, last.Statement, "declare query_parameters(state: string);")
	assert.Contains(t, last.Statement, "GetStorms(state)")
	assert.True(t, strings.HasSuffix(last.Statement, "| take 1"))
	assert.Equal(t, map[string]string{"state": "TEXAS"}, last.Parameters)
}

func TestCallCommand_MissingParameter(t *testing.T) {
	isolate(t)
	cluster := testutil.NewFakeCluster(t, stormEvents)

	_, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "call", "GetStorms", "-c", cluster.URL, "-d", "Samples")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Required parameter 'state' is missing")
}

func TestListDatabasesCommand(t *testing.T) {
	isolate(t)
	cluster := testutil.NewFakeCluster(t, stormEvents)

	out, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "list", "databases", "-c", cluster.URL, "-o", "md")
	require.NoError(t, err)
	assert.Contains(t, out, "| Samples | Sample data |")
	assert.Equal(t, "/v1/rest/mgmt", cluster.Requests()[0].Path)
}

func TestSchemaCommand_NotFound(t *testing.T) {
	isolate(t)
	cluster := testutil.NewFakeCluster(t, stormEvents)

	_, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "schema", "table", "Missing", "-c", cluster.URL, "-d", "Samples")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `table "Missing" not found`)

	_, _, err = testutil.ExecuteCommand(t, NewRootCmd(), "schema", "function", "Missing", "-c", cluster.URL, "-d", "Samples")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `function "Missing" not found`)
}

func TestConfigCommand(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kusto-mcp.yaml"), []byte(`
auth:
  mode: application
  tenant_id: tenant
  client_id: client
  client_secret: super-secret
features:
  enable_beta_tools: true
`), 0o600))
	require.NoError(t, os.Unsetenv("KUSTO_MCP_AUTH__MODE"))

	out, _, err := testutil.ExecuteCommand(t, NewRootCmd(), "config")
	require.NoError(t, err)
	testutil.AssertContains(t, out,
		"# config file: kusto-mcp.yaml",
		"enable_beta_tools: true",
		"client_secret:",
		"********",
		"hard_limit: 50000",
	)
	assert.NotContains(t, out, "super-secret")
}
