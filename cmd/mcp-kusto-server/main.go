// Package main provides the entry point for the Kusto MCP server.
package main

import (
	"os"

	"github.com/jhzhu89/mcp-server-azure-kusto/internal/cli"

	_ "github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapters/kusto"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
