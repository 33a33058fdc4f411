// Package adapter provides the executor contract that binds the query engine
// to a remote analytical store.
//
// This package contains the public contract that all executors must implement.
// Concrete implementations are in pkg/adapters/ subdirectories and register
// themselves with the registry from their init() functions.
package adapter

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Config holds configuration for binding an executor to one cluster.
type Config struct {
	// Type selects the registered executor implementation (e.g. "kusto").
	Type string

	// ClusterURL is the cluster endpoint, e.g. https://mycluster.eastus.kusto.windows.net
	ClusterURL string

	// TokenSource supplies bearer tokens. Nil sends unauthenticated requests.
	TokenSource oauth2.TokenSource

	// HTTPClient overrides the transport. Nil uses a default client.
	HTTPClient *http.Client

	// Application is reported to the cluster for request attribution.
	Application string

	// Params contains executor-specific settings, decoded by each
	// implementation into its own typed struct.
	Params map[string]any
}

// RequestProperties travel with a single statement.
type RequestProperties struct {
	// Timeout is the server-side execution timeout. Zero leaves the store default.
	Timeout time.Duration

	// Parameters are bound out-of-band to names declared by the statement.
	Parameters map[string]any
}

// SetParameter binds name to value, allocating the map on first use.
func (p *RequestProperties) SetParameter(name string, value any) {
	if p.Parameters == nil {
		p.Parameters = make(map[string]any)
	}
	p.Parameters[name] = value
}

// Executor issues statements against a bound cluster.
type Executor interface {
	// Execute runs statement against database (empty for cluster scope).
	// Implementations must surface server-side timeouts as errors whose text
	// identifies them as timeouts.
	Execute(ctx context.Context, database, statement string, props *RequestProperties) (*Response, error)
}
