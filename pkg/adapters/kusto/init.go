// Package kusto provides an Azure Data Explorer executor that speaks the
// Kusto REST API (v2 for queries, v1 for management commands).
//
// This file registers the executor with the adapter registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapters/kusto"
package kusto

import (
	"log/slog"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
)

func init() {
	adapter.Register("kusto", func(cfg adapter.Config, logger *slog.Logger) (adapter.Executor, error) {
		return New(cfg, logger)
	})
}
