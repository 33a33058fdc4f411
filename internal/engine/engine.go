// Package engine provides the query execution and result governance engine.
// It resolves function contracts, executes statements under per-class
// timeouts, normalizes responses and applies row-count tiers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

// Engine runs tool operations against one bound executor.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	exec    *timeoutExecutor
	limiter *Limiter
	logger  *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Limits are the row-count tiers applied to query results
	Limits core.QueryLimits
	// Timeouts are the per-class server timeouts
	Timeouts core.QueryTimeouts
}

// New creates an engine over exec.
// If logger is nil, a discard logger is used.
func New(exec adapter.Executor, cfg Config, logger *slog.Logger) (*Engine, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if err := cfg.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query limits: %w", err)
	}
	if err := cfg.Timeouts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query timeouts: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		exec:    &timeoutExecutor{exec: exec, timeouts: cfg.Timeouts, logger: logger},
		limiter: NewLimiter(cfg.Limits, logger),
		logger:  logger,
	}, nil
}

// =============================================================================
// Queries and function calls
// =============================================================================

// ExecuteQuery runs query and returns a governed result.
func (e *Engine) ExecuteQuery(ctx context.Context, database, query string) (*core.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, validationError(ErrMissingArgument, "Query must not be empty")
	}

	return withPerfLogging(e.logger, "kusto query", []any{
		slog.String("database", database),
		slog.Int("query_length", len(query)),
	}, func() (*core.QueryResult, error) {
		start := time.Now()
		resp, err := e.exec.execute(ctx, database, query, core.OperationQuery, nil)
		if err != nil {
			return nil, err
		}
		t := transform(resp, e.logger)
		result := e.limiter.Apply(t.Columns, t.Rows, query)
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
		return result, nil
	})
}

// ExecuteFunction calls a stored function with args bound as query
// parameters and appends pipeline, if any, to the call.
func (e *Engine) ExecuteFunction(ctx context.Context, database, name string, args map[string]any, pipeline string) (*core.QueryResult, error) {
	if err := ValidateFunctionName(name); err != nil {
		return nil, err
	}

	return withPerfLogging(e.logger, "kusto function", []any{
		slog.String("database", database),
		slog.String("function", name),
		slog.Int("arg_count", len(args)),
	}, func() (*core.QueryResult, error) {
		start := time.Now()
		params, err := e.functionParameters(ctx, database, name)
		if err != nil {
			return nil, err
		}

		inv, err := BuildInvocation(name, params, args, pipeline)
		if err != nil {
			return nil, err
		}

		resp, err := e.exec.execute(ctx, database, inv.Statement, core.OperationQuery, inv.Parameters)
		if err != nil {
			return nil, err
		}
		t := transform(resp, e.logger)
		result := e.limiter.Apply(t.Columns, t.Rows, inv.Statement)
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
		return result, nil
	})
}

// VerifyFunctionParams checks args against the declared parameters of name
// without calling the function.
func (e *Engine) VerifyFunctionParams(ctx context.Context, database, name string, args map[string]any) error {
	if err := ValidateFunctionName(name); err != nil {
		return err
	}
	params, err := e.functionParameters(ctx, database, name)
	if err != nil {
		return err
	}
	return VerifyParameters(params, args)
}

// =============================================================================
// Listings
// =============================================================================

// ListTables lists the tables of database.
func (e *Engine) ListTables(ctx context.Context, database string) (*core.TableListResult, error) {
	return withPerfLogging(e.logger, "list tables", []any{slog.String("database", database)},
		func() (*core.TableListResult, error) {
			start := time.Now()
			t, err := e.metadata(ctx, database, listTablesStatement)
			if err != nil {
				return nil, err
			}
			tables := make([]core.TableSummary, 0, len(t.Rows))
			for _, row := range t.Rows {
				tables = append(tables, core.TableSummary{
					Folder:       stringValue(row["Folder"]),
					Name:         stringValue(row["TableName"]),
					DatabaseName: stringValue(row["DatabaseName"]),
					Description:  stringValue(row["DocString"]),
				})
			}
			return &core.TableListResult{Tables: tables, ExecutionTimeMs: time.Since(start).Milliseconds()}, nil
		})
}

// ListFunctions lists the stored functions of database.
func (e *Engine) ListFunctions(ctx context.Context, database string) (*core.FunctionListResult, error) {
	return withPerfLogging(e.logger, "list functions", []any{slog.String("database", database)},
		func() (*core.FunctionListResult, error) {
			start := time.Now()
			t, err := e.metadata(ctx, database, listFunctionsStatement)
			if err != nil {
				return nil, err
			}
			functions := make([]core.FunctionSummary, 0, len(t.Rows))
			for _, row := range t.Rows {
				functions = append(functions, core.FunctionSummary{
					Folder:      stringValue(row["Folder"]),
					Name:        stringValue(row["Name"]),
					Description: stringValue(row["DocString"]),
				})
			}
			return &core.FunctionListResult{Functions: functions, ExecutionTimeMs: time.Since(start).Milliseconds()}, nil
		})
}

// ListDatabases lists the databases of the cluster.
func (e *Engine) ListDatabases(ctx context.Context) (*core.DatabaseListResult, error) {
	return withPerfLogging(e.logger, "list databases", nil,
		func() (*core.DatabaseListResult, error) {
			start := time.Now()
			t, err := e.metadata(ctx, "", listDatabasesStatement)
			if err != nil {
				return nil, err
			}
			databases := make([]core.DatabaseSummary, 0, len(t.Rows))
			for _, row := range t.Rows {
				databases = append(databases, core.DatabaseSummary{
					Name:        stringValue(row["DatabaseName"]),
					Description: stringValue(row["PrettyName"]),
				})
			}
			return &core.DatabaseListResult{Databases: databases, ExecutionTimeMs: time.Since(start).Milliseconds()}, nil
		})
}

// =============================================================================
// Schemas
// =============================================================================

// GetTableSchema returns the ordered columns of table, or nil if the table
// does not exist.
func (e *Engine) GetTableSchema(ctx context.Context, database, table string) (*core.TableSchemaResult, error) {
	stmt, err := TableSchemaStatement(table)
	if err != nil {
		return nil, err
	}

	return withPerfLogging(e.logger, "get table schema", []any{
		slog.String("database", database),
		slog.String("table", table),
	}, func() (*core.TableSchemaResult, error) {
		start := time.Now()
		t, err := e.metadata(ctx, database, stmt)
		if err != nil {
			return nil, err
		}
		if len(t.Rows) == 0 {
			e.logger.Debug("table not found", slog.String("table", table), slog.String("database", database))
			return nil, nil
		}

		row := t.Rows[0]
		columns, err := parseSchemaColumns(row["Schema"])
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table, err)
		}
		name := stringValue(row["TableName"])
		if name == "" {
			name = table
		}
		return &core.TableSchemaResult{
			Schema:          core.TableSchema{Name: name, Columns: columns},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	})
}

// GetFunctionSchema returns the parameters and output columns of function,
// or nil if the function does not exist. Output discovery failures leave
// OutputSchema empty.
func (e *Engine) GetFunctionSchema(ctx context.Context, database, function string) (*core.FunctionSchema, error) {
	stmt, err := FunctionParametersStatement(function)
	if err != nil {
		return nil, err
	}

	return withPerfLogging(e.logger, "get function schema", []any{
		slog.String("database", database),
		slog.String("function", function),
	}, func() (*core.FunctionSchema, error) {
		start := time.Now()
		t, err := e.metadata(ctx, database, stmt)
		if err != nil {
			return nil, err
		}
		if len(t.Rows) == 0 {
			return nil, nil
		}

		row := t.Rows[0]
		params := e.resolveParameters(function, stringValue(row["Parameters"]))
		name := stringValue(row["Name"])
		if name == "" {
			name = function
		}

		return &core.FunctionSchema{
			Name:            name,
			Parameters:      params,
			OutputSchema:    e.discoverOutputSchema(ctx, database, function, params),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	})
}

// =============================================================================
// Helpers
// =============================================================================

// metadata runs a metadata-class statement and transforms the response.
func (e *Engine) metadata(ctx context.Context, database, statement string) (transformed, error) {
	resp, err := e.exec.execute(ctx, database, statement, core.OperationMetadata, nil)
	if err != nil {
		return transformed{}, err
	}
	return transform(resp, e.logger), nil
}

// functionParameters fetches and parses the declared parameters of name.
func (e *Engine) functionParameters(ctx context.Context, database, name string) ([]core.FunctionParameter, error) {
	stmt, err := FunctionParametersStatement(name)
	if err != nil {
		return nil, err
	}
	t, err := e.metadata(ctx, database, stmt)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, &NotFoundError{Kind: "Function", Name: name}
	}
	return e.resolveParameters(name, stringValue(t.Rows[0]["Parameters"])), nil
}

// resolveParameters parses a declaration, degrading to an empty list on failure.
func (e *Engine) resolveParameters(function, raw string) []core.FunctionParameter {
	res := ParseFunctionParameters(raw)
	if res.Outcome == ResolutionDegraded {
		e.logger.Warn("failed to parse function parameters",
			slog.String("function", function),
			slog.String("parameters", raw),
			slog.String("error", res.Err.Error()))
	}
	return res.Parameters
}

// discoverOutputSchema dry-runs function with fabricated arguments and
// returns its output columns. Failures are logged and yield an empty list.
func (e *Engine) discoverOutputSchema(ctx context.Context, database, function string, params []core.FunctionParameter) []core.OutputColumn {
	inv, err := BuildDiscoveryInvocation(function, params)
	if err == nil {
		var resp *adapter.Response
		resp, err = e.exec.execute(ctx, database, OutputSchemaStatement(function, inv), core.OperationMetadata, inv.Parameters)
		if err == nil {
			return mapOutputSchema(transform(resp, e.logger).Rows)
		}
	}
	e.logger.Warn("failed to discover output schema",
		slog.String("function", function),
		slog.String("error", err.Error()))
	return []core.OutputColumn{}
}

// withPerfLogging logs start, completion and failure of an operation with
// its elapsed time.
func withPerfLogging[T any](logger *slog.Logger, operation string, attrs []any, fn func() (T, error)) (T, error) {
	start := time.Now()
	logger.Debug("executing "+operation, attrs...)

	result, err := fn()
	elapsed := fmt.Sprintf("%.3fs", time.Since(start).Seconds())
	if err != nil {
		logger.Error(operation+" failed", append(attrs, slog.String("execution_time", elapsed), slog.String("error", err.Error()))...)
		return result, err
	}
	logger.Debug(operation+" completed", append(attrs, slog.String("execution_time", elapsed))...)
	return result, nil
}
