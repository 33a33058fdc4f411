package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

const (
	queryTimeoutHint   = "Consider adding time filters, limits, or reducing data scope."
	defaultTimeoutHint = "Try again or contact administrator if this persists."
)

// timeoutIndicators are matched case-insensitively against upstream errors.
var timeoutIndicators = []string{
	"timeout",
	"timed out",
	"request timed out",
	"query timeout",
}

// timeoutExecutor attaches a per-class server timeout to every request and
// rewrites timeout failures into *TimeoutError.
type timeoutExecutor struct {
	exec     adapter.Executor
	timeouts core.QueryTimeouts
	logger   *slog.Logger
}

func (x *timeoutExecutor) execute(ctx context.Context, database, statement string, class core.OperationClass, params map[string]any) (*adapter.Response, error) {
	timeout := x.timeouts.For(class)
	props := &adapter.RequestProperties{Timeout: timeout}
	for name, v := range params {
		props.SetParameter(name, v)
	}

	start := time.Now()
	resp, err := x.exec.Execute(ctx, database, statement, props)
	elapsed := time.Since(start)
	if err == nil {
		x.logger.Debug("statement executed",
			slog.String("class", string(class)),
			slog.String("database", database),
			slog.Duration("elapsed", elapsed))
		return resp, nil
	}

	if isTimeoutError(err) {
		x.logger.Warn("query timeout occurred",
			slog.String("class", string(class)),
			slog.String("database", database),
			slog.Int("query_length", len(statement)),
			slog.Duration("timeout", timeout))
		return nil, &TimeoutError{
			Class:   class,
			Timeout: timeout,
			Hint:    timeoutHint(class),
			Err:     err,
		}
	}

	x.logger.Debug("statement failed",
		slog.String("class", string(class)),
		slog.Duration("elapsed", elapsed),
		slog.String("error", err.Error()))
	return nil, err
}

func timeoutHint(class core.OperationClass) string {
	if class == core.OperationQuery {
		return queryTimeoutHint
	}
	return defaultTimeoutHint
}

// isTimeoutError reports whether err signals an exceeded timeout.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var reqErr *adapter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.StatusCode == http.StatusRequestTimeout || reqErr.StatusCode == http.StatusGatewayTimeout {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range timeoutIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
