package engine

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

// transformed is the normalized primary result before governance.
type transformed struct {
	Columns []core.Column
	Rows    []core.Row
}

// transform converts the store's native response into columns and rows.
// A response without a primary table yields an empty result.
func transform(resp *adapter.Response, logger *slog.Logger) transformed {
	start := time.Now()
	table := resp.Primary()
	if table == nil {
		return transformed{Columns: []core.Column{}, Rows: []core.Row{}}
	}

	columns := make([]core.Column, len(table.Columns))
	for i, c := range table.Columns {
		typ := c.Type
		if typ == "" {
			typ = core.DynamicType
		}
		columns[i] = core.Column{Name: c.Name, Type: typ}
	}

	rows := make([]core.Row, 0, len(table.Rows))
	for _, raw := range table.Rows {
		row := make(core.Row, len(columns))
		for i, col := range columns {
			if i < len(raw) {
				row[col.Name] = convertValue(col.Type, raw[i])
			} else {
				row[col.Name] = nil
			}
		}
		rows = append(rows, row)
	}

	if elapsed := time.Since(start); len(rows) > 1000 || elapsed > 100*time.Millisecond {
		logger.Debug("transform completed",
			slog.Int("row_count", len(rows)),
			slog.Int("column_count", len(columns)),
			slog.Duration("elapsed", elapsed))
	}
	return transformed{Columns: columns, Rows: rows}
}

// convertValue maps a wire value to a Go value using the column's declared type.
// Values that do not match the declared type are returned as received.
func convertValue(typ string, v any) any {
	if v == nil {
		return nil
	}
	switch strings.ToLower(typ) {
	case "int", "long", "int32", "int64":
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i
			}
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	case "real", "double":
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	case "bool", "boolean":
		switch b := v.(type) {
		case bool:
			return b
		case json.Number:
			return b.String() != "0"
		}
	case "datetime", "date":
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t
			}
		}
	case "dynamic":
		// Management responses carry dynamic values as JSON text.
		if s, ok := v.(string); ok {
			trimmed := strings.TrimSpace(s)
			if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
				var decoded any
				if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
					return decoded
				}
			}
		}
	}
	return v
}
