package engine

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

// Validation failure categories. Use errors.Is against a returned error.
var (
	ErrMissingArgument    = errors.New("missing argument")
	ErrMissingParameter   = errors.New("missing required parameter")
	ErrInvalidPipeline    = errors.New("invalid pipeline")
	ErrForbiddenOperation = errors.New("forbidden operation")
	ErrInvalidIdentifier  = errors.New("invalid identifier")
)

// ValidationError is returned for caller mistakes detected before any
// request reaches the store. It is never retried.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validationError(kind error, format string, args ...any) *ValidationError {
	return &ValidationError{Err: kind, Message: fmt.Sprintf(format, args...)}
}

// TimeoutError is returned when the store reports that a request exceeded
// its server-side timeout.
type TimeoutError struct {
	Class   core.OperationClass
	Timeout time.Duration
	Hint    string
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Query timeout after %s. %s Original: %s", formatSeconds(e.Timeout), e.Hint, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when an operation needs an object that does not
// exist. Lookups that can express absence return nil instead.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

// formatSeconds renders d as whole or fractional seconds, e.g. "30s" or "1.5s".
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}
