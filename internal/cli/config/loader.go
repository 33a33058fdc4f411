package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix prefixes namespaced environment variables. A double underscore
// separates nesting levels, e.g. KUSTO_MCP_QUERY_LIMITS__HARD_LIMIT.
const EnvPrefix = "KUSTO_MCP_"

// configFileNames are searched in the working directory when no file is given.
var configFileNames = []string{"kusto-mcp.yaml", "kusto-mcp.yml"}

// legacyEnv maps the environment variables understood by earlier releases to
// config keys.
var legacyEnv = map[string]string{
	"QUERY_WARNING_THRESHOLD": "query_limits.warning_threshold",
	"QUERY_SOFT_LIMIT":        "query_limits.soft_limit",
	"QUERY_HARD_LIMIT":        "query_limits.hard_limit",
	"QUERY_TIMEOUT_DEFAULT":   "query_timeout.default",
	"QUERY_TIMEOUT_METADATA":  "query_timeout.metadata",
	"QUERY_TIMEOUT_QUERY":     "query_timeout.query",
	"QUERY_TIMEOUT_MAXIMUM":   "query_timeout.maximum",
	"ENABLE_BETA_TOOLS":       "features.enable_beta_tools",
	"PORT":                    "server.port",
	"AZURE_AUTH_MODE":         "auth.mode",
	"AZURE_TENANT_ID":         "auth.tenant_id",
	"AZURE_CLIENT_ID":         "auth.client_id",
	"AZURE_CLIENT_SECRET":     "auth.client_secret",
	"AZURE_AUTHORITY_HOST":    "auth.authority_host",
}

// flagKeys maps CLI flag names to config keys. Flags not listed are not
// configuration.
var flagKeys = map[string]string{
	"log-level":         "log.level",
	"log-format":        "log.format",
	"output":            "output",
	"transport":         "server.transport",
	"host":              "server.host",
	"port":              "server.port",
	"enable-beta-tools": "features.enable_beta_tools",
	"auth-mode":         "auth.mode",
	"adapter":           "adapter.type",
}

// Package-level config file tracking
var (
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// ResetConfig clears the tracked state. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// defaults returns the stock configuration as a flat key map.
func defaults() map[string]any {
	limits := core.DefaultQueryLimits()
	timeouts := core.DefaultQueryTimeouts()
	return map[string]any{
		"query_limits.warning_threshold": limits.WarningThreshold,
		"query_limits.soft_limit":        limits.SoftLimit,
		"query_limits.hard_limit":        limits.HardLimit,
		"query_timeout.default":          int(timeouts.Default.Milliseconds()),
		"query_timeout.metadata":         int(timeouts.Metadata.Milliseconds()),
		"query_timeout.query":            int(timeouts.Query.Milliseconds()),
		"query_timeout.maximum":          int(timeouts.Maximum.Milliseconds()),
		"features.enable_beta_tools":     false,
		"server.transport":               DefaultTransport,
		"server.host":                    DefaultHost,
		"server.port":                    DefaultPort,
		"auth.mode":                      DefaultAuthMode,
		"log.level":                      DefaultLogLevel,
		"log.format":                     DefaultLogFormat,
		"adapter.type":                   DefaultAdapter,
		"adapter.application":            DefaultApplication,
		"output":                         DefaultOutput,
	}
}

// findConfigFile finds the config file to use.
// Priority: explicit path > kusto-mcp.yaml > kusto-mcp.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// legacyValues collects the legacy environment variables that are set.
func legacyValues(lookup func(string) (string, bool)) map[string]any {
	out := make(map[string]any)
	for name, key := range legacyEnv {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		if key == "features.enable_beta_tools" {
			// Anything but "true" disables beta tools.
			out[key] = strings.EqualFold(v, "true")
			continue
		}
		out[key] = v
	}
	return out
}

// envKey transforms KUSTO_MCP_QUERY_LIMITS__HARD_LIMIT into query_limits.hard_limit.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// LoadConfig loads configuration from defaults, file, environment variables
// and flags, then validates it.
// Precedence (highest to lowest): flags > KUSTO_MCP_ env > legacy env > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load legacy environment variables
	if legacy := legacyValues(os.LookupEnv); len(legacy) > 0 {
		if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load legacy env vars: %w", err)
		}
	}

	// 4. Load namespaced environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// normalize lowercases enum values.
func normalize(cfg *Config) {
	cfg.Server.Transport = strings.ToLower(strings.TrimSpace(cfg.Server.Transport))
	cfg.Auth.Mode = strings.ToLower(strings.TrimSpace(cfg.Auth.Mode))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
