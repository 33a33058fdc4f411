package adapter

import (
	"fmt"
	"strings"
)

// ResultColumn is a column as reported on the wire.
type ResultColumn struct {
	Name string
	Type string
}

// Table is one tabular frame of a response. Rows are positional and match Columns.
type Table struct {
	Name    string
	Kind    string
	Columns []ResultColumn
	Rows    [][]any
}

// Response is the store's native answer to a statement.
type Response struct {
	PrimaryResults []*Table
}

// Primary returns the first primary result table, or nil when there is none.
func (r *Response) Primary() *Table {
	if r == nil || len(r.PrimaryResults) == 0 {
		return nil
	}
	return r.PrimaryResults[0]
}

// RequestError is returned when the store rejects a request.
type RequestError struct {
	StatusCode int
	Code       string
	Message    string
	ActivityID string
}

func (e *RequestError) Error() string {
	var b strings.Builder
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "request failed with status %d", e.StatusCode)
	} else {
		b.WriteString("request failed")
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.ActivityID != "" {
		fmt.Fprintf(&b, " [activity %s]", e.ActivityID)
	}
	return b.String()
}
