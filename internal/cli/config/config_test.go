package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/auth"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register the kusto adapter so adapter.type validates.
	_ "github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapters/kusto"
)

// isolate runs the test in an empty directory with no config env vars set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for name := range legacyEnv {
		t.Setenv(name, "")
	}
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, EnvPrefix) {
			// Setenv restores the previous value on cleanup.
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
	ResetConfig()
	return dir
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("log-level", "", "")
	fs.String("transport", "", "")
	fs.Int("port", 0, "")
	fs.Bool("enable-beta-tools", false, "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, QueryLimitsConfig{WarningThreshold: 1000, SoftLimit: 5000, HardLimit: 50000}, cfg.QueryLimits)
	assert.Equal(t, QueryTimeoutConfig{Default: 30000, Metadata: 30000, Query: 60000, Maximum: 120000}, cfg.QueryTimeout)
	assert.False(t, cfg.Features.EnableBetaTools)
	assert.Equal(t, DefaultTransport, cfg.Server.Transport)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultAuthMode, cfg.Auth.Mode)
	assert.Equal(t, DefaultAdapter, cfg.Adapter.Type)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())

	assert.Equal(t, 60*time.Second, cfg.Timeouts().Query)
	assert.Equal(t, 2*time.Minute, cfg.Timeouts().Maximum)
	assert.Equal(t, 50000, cfg.EngineConfig().Limits.HardLimit)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "kusto-mcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
query_limits:
  warning_threshold: 10
  soft_limit: 20
  hard_limit: 30
server:
  port: 8080
  transport: stdio
log:
  level: debug
auth:
  mode: none
adapter:
  params:
    default_database: Samples
`), 0o600))

	t.Setenv("QUERY_HARD_LIMIT", "40")
	t.Setenv("PORT", "9090")
	t.Setenv("KUSTO_MCP_SERVER__PORT", "7070")
	t.Setenv("KUSTO_MCP_LOG__LEVEL", "warn")
	t.Setenv("ENABLE_BETA_TOOLS", "TRUE")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--log-level", "error", "--transport", "http"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "kusto-mcp.yaml", GetConfigFileUsed())
	assert.Equal(t, 10, cfg.QueryLimits.WarningThreshold, "file overrides default")
	assert.Equal(t, 40, cfg.QueryLimits.HardLimit, "legacy env overrides file")
	assert.Equal(t, 7070, cfg.Server.Port, "namespaced env overrides legacy env")
	assert.Equal(t, "error", cfg.Log.Level, "flag overrides env")
	assert.Equal(t, "http", cfg.Server.Transport, "flag overrides file")
	assert.True(t, cfg.Features.EnableBetaTools)
	assert.Equal(t, "Samples", cfg.Adapter.Params["default_database"])
}

func TestLoadConfig_LegacyBetaToggle(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"yes", false},
		{"1", false},
		{"false", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			isolate(t)
			t.Setenv("ENABLE_BETA_TOOLS", tt.value)

			cfg, err := LoadConfig("", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Features.EnableBetaTools)
		})
	}
}

func TestLoadConfig_UnchangedFlagsIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("KUSTO_MCP_SERVER__PORT", "7070")

	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	isolate(t)
	_, err := LoadConfig("missing.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file missing.yaml")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr []string
	}{
		{
			name:    "soft above hard",
			env:     map[string]string{"QUERY_SOFT_LIMIT": "60000"},
			wantErr: []string{"query_limits", "soft limit must be between"},
		},
		{
			name:    "hard limit too large",
			env:     map[string]string{"QUERY_HARD_LIMIT": "100001"},
			wantErr: []string{"hard limit must be between"},
		},
		{
			name:    "timeout above maximum",
			env:     map[string]string{"QUERY_TIMEOUT_QUERY": "130000"},
			wantErr: []string{"query_timeout"},
		},
		{
			name:    "maximum above ten minutes",
			env:     map[string]string{"QUERY_TIMEOUT_MAXIMUM": "600001"},
			wantErr: []string{"maximum timeout must be between"},
		},
		{
			name: "several violations at once",
			env: map[string]string{
				"KUSTO_MCP_SERVER__TRANSPORT": "grpc",
				"KUSTO_MCP_LOG__FORMAT":       "xml",
				"KUSTO_MCP_AUTH__MODE":        "managed",
			},
			wantErr: []string{"server.transport must be one of", "log.format must be one of", "auth.mode must be one of"},
		},
		{
			name:    "unknown adapter",
			env:     map[string]string{"KUSTO_MCP_ADAPTER__TYPE": "bigquery"},
			wantErr: []string{"unknown adapter type", "kusto"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestConfig_AuthSettings(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{Mode: "delegated", TenantID: "t", ClientID: "c", ClientSecret: "s"}}
	got := cfg.AuthSettings()
	assert.Equal(t, auth.ModeDelegated, got.Mode)
	assert.NoError(t, got.Validate())

	redacted := cfg.Redacted()
	assert.Equal(t, "********", redacted.Auth.ClientSecret)
	assert.Equal(t, "s", cfg.Auth.ClientSecret, "original is untouched")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       LogConfig
		wantDebug bool
		wantJSON  bool
	}{
		{"info text", LogConfig{Level: "info", Format: "text"}, false, false},
		{"debug json", LogConfig{Level: "debug", Format: "json"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.cfg, &buf)
			assert.Equal(t, tt.wantDebug, logger.Enabled(context.Background(), slog.LevelDebug))

			logger.Info("hello")
			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			} else {
				assert.Contains(t, buf.String(), "msg=hello")
			}
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info"}, &buf)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
