// Package core defines the shared language of the Kusto MCP server.
//
// This package contains:
//   - Result entities (Column, Row, QueryResult, listing summaries)
//   - Function contract types (FunctionParameter, FunctionSchema)
//   - Governance configuration (QueryLimits, QueryTimeouts, OperationClass)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
