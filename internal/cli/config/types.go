// Package config provides configuration management for the Kusto MCP server.
package config

import (
	"time"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/auth"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/engine"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

// Config holds all server and CLI configuration options.
type Config struct {
	QueryLimits  QueryLimitsConfig  `koanf:"query_limits" yaml:"query_limits"`
	QueryTimeout QueryTimeoutConfig `koanf:"query_timeout" yaml:"query_timeout"`
	Features     FeaturesConfig     `koanf:"features" yaml:"features"`
	Server       ServerConfig       `koanf:"server" yaml:"server"`
	Auth         AuthConfig         `koanf:"auth" yaml:"auth"`
	Log          LogConfig          `koanf:"log" yaml:"log"`
	Adapter      AdapterConfig      `koanf:"adapter" yaml:"adapter"`
	Output       string             `koanf:"output" yaml:"output"`
}

// QueryLimitsConfig holds the row-count tiers.
type QueryLimitsConfig struct {
	WarningThreshold int `koanf:"warning_threshold" yaml:"warning_threshold"`
	SoftLimit        int `koanf:"soft_limit" yaml:"soft_limit"`
	HardLimit        int `koanf:"hard_limit" yaml:"hard_limit"`
}

// QueryTimeoutConfig holds per-class server timeouts in milliseconds.
type QueryTimeoutConfig struct {
	Default  int `koanf:"default" yaml:"default"`
	Metadata int `koanf:"metadata" yaml:"metadata"`
	Query    int `koanf:"query" yaml:"query"`
	Maximum  int `koanf:"maximum" yaml:"maximum"`
}

// FeaturesConfig toggles optional behavior.
type FeaturesConfig struct {
	EnableBetaTools bool `koanf:"enable_beta_tools" yaml:"enable_beta_tools"`
}

// ServerConfig selects the MCP transport.
type ServerConfig struct {
	Transport string `koanf:"transport" yaml:"transport"`
	Host      string `koanf:"host" yaml:"host"`
	Port      int    `koanf:"port" yaml:"port"`
}

// AuthConfig holds credential settings.
type AuthConfig struct {
	Mode          string `koanf:"mode" yaml:"mode"`
	TenantID      string `koanf:"tenant_id" yaml:"tenant_id"`
	ClientID      string `koanf:"client_id" yaml:"client_id"`
	ClientSecret  string `koanf:"client_secret" yaml:"client_secret"`
	AuthorityHost string `koanf:"authority_host" yaml:"authority_host"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// AdapterConfig selects and configures the executor backend.
type AdapterConfig struct {
	Type        string         `koanf:"type" yaml:"type"`
	Application string         `koanf:"application" yaml:"application"`
	Params      map[string]any `koanf:"params" yaml:"params,omitempty"`
}

// Default configuration values.
const (
	DefaultTransport   = "http"
	DefaultHost        = ""
	DefaultPort        = 3000
	DefaultAuthMode    = "application"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultAdapter     = "kusto"
	DefaultApplication = "mcp-kusto-server"
	DefaultOutput      = "auto" // Auto-detect: TTY=table, non-TTY=json
)

// Limits converts the configured tiers.
func (c *Config) Limits() core.QueryLimits {
	return core.QueryLimits{
		WarningThreshold: c.QueryLimits.WarningThreshold,
		SoftLimit:        c.QueryLimits.SoftLimit,
		HardLimit:        c.QueryLimits.HardLimit,
	}
}

// Timeouts converts the configured millisecond timeouts.
func (c *Config) Timeouts() core.QueryTimeouts {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return core.QueryTimeouts{
		Default:  ms(c.QueryTimeout.Default),
		Metadata: ms(c.QueryTimeout.Metadata),
		Query:    ms(c.QueryTimeout.Query),
		Maximum:  ms(c.QueryTimeout.Maximum),
	}
}

// EngineConfig returns the engine settings.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{Limits: c.Limits(), Timeouts: c.Timeouts()}
}

// AuthSettings returns the credential settings.
func (c *Config) AuthSettings() auth.Config {
	return auth.Config{
		Mode:          auth.Mode(c.Auth.Mode),
		TenantID:      c.Auth.TenantID,
		ClientID:      c.Auth.ClientID,
		ClientSecret:  c.Auth.ClientSecret,
		AuthorityHost: c.Auth.AuthorityHost,
	}
}

// Redacted returns a copy safe for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Auth.ClientSecret != "" {
		out.Auth.ClientSecret = "********"
	}
	return &out
}
