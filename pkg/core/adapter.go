package core

import (
	"fmt"
	"time"
)

// =============================================================================
// Operation classes
// =============================================================================

// OperationClass selects which configured timeout applies to a request.
type OperationClass string

// Operation classes understood by the executor.
const (
	OperationDefault  OperationClass = "default"
	OperationMetadata OperationClass = "metadata"
	OperationQuery    OperationClass = "query"
)

// =============================================================================
// Timeouts
// =============================================================================

// QueryTimeouts holds the per-class server timeouts. Immutable after startup.
type QueryTimeouts struct {
	Default  time.Duration
	Metadata time.Duration
	Query    time.Duration
	Maximum  time.Duration
}

// MaxQueryTimeout is the upper bound accepted for QueryTimeouts.Maximum.
const MaxQueryTimeout = 10 * time.Minute

// For returns the effective timeout for class, capped at Maximum.
// Unknown classes use Default.
func (t QueryTimeouts) For(class OperationClass) time.Duration {
	var d time.Duration
	switch class {
	case OperationMetadata:
		d = t.Metadata
	case OperationQuery:
		d = t.Query
	default:
		d = t.Default
	}
	return min(d, t.Maximum)
}

// Validate checks 0 < each <= Maximum <= MaxQueryTimeout.
func (t QueryTimeouts) Validate() error {
	if t.Maximum <= 0 || t.Maximum > MaxQueryTimeout {
		return fmt.Errorf("maximum timeout must be between 1ms and %s, got: %s", MaxQueryTimeout, t.Maximum)
	}
	for _, c := range []struct {
		name string
		d    time.Duration
	}{
		{"default", t.Default},
		{"metadata", t.Metadata},
		{"query", t.Query},
	} {
		if c.d <= 0 || c.d > t.Maximum {
			return fmt.Errorf("%s timeout must be between 1ms and %s, got: %s", c.name, t.Maximum, c.d)
		}
	}
	return nil
}

// DefaultQueryTimeouts returns the stock timeouts.
func DefaultQueryTimeouts() QueryTimeouts {
	return QueryTimeouts{
		Default:  30 * time.Second,
		Metadata: 30 * time.Second,
		Query:    60 * time.Second,
		Maximum:  2 * time.Minute,
	}
}
