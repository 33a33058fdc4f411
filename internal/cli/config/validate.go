package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/auth"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
)

var (
	validTransports = []string{"http", "stdio"}
	validAuthModes  = []string{string(auth.ModeApplication), string(auth.ModeDelegated), string(auth.ModeNone)}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
	validOutputs    = []string{"auto", "table", "json", "csv", "md", "markdown"}
)

// Validate checks every section and reports all violations together.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Limits().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("query_limits: %w", err))
	}
	if err := c.Timeouts().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("query_timeout: %w", err))
	}
	if !slices.Contains(validTransports, c.Server.Transport) {
		errs = append(errs, fmt.Errorf("server.transport must be one of %v, got: %q", validTransports, c.Server.Transport))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 0 and 65535, got: %d", c.Server.Port))
	}
	// Credentials are checked when a command builds its provider.
	if !slices.Contains(validAuthModes, c.Auth.Mode) {
		errs = append(errs, fmt.Errorf("auth.mode must be one of %v, got: %q", validAuthModes, c.Auth.Mode))
	}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of %v, got: %q", validLogLevels, c.Log.Level))
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v, got: %q", validLogFormats, c.Log.Format))
	}
	if !slices.Contains(validOutputs, c.Output) {
		errs = append(errs, fmt.Errorf("output must be one of %v, got: %q", validOutputs, c.Output))
	}
	if !adapter.IsRegistered(c.Adapter.Type) {
		errs = append(errs, &adapter.UnknownAdapterError{Type: c.Adapter.Type, Available: adapter.ListAdapters()})
	}

	return errors.Join(errs...)
}
