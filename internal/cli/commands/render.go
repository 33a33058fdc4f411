package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
	"golang.org/x/term"
)

// Output formats.
const (
	FormatAuto     = "auto"
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
)

// Renderer writes command results in the configured format.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	format string
}

// NewRenderer creates a renderer. Auto resolves to table on a terminal and
// JSON otherwise.
func NewRenderer(out, errOut io.Writer, format string) *Renderer {
	return &Renderer{out: out, errOut: errOut, format: resolveFormat(format, out)}
}

func resolveFormat(format string, out io.Writer) string {
	switch format {
	case "", FormatAuto:
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return FormatTable
		}
		return FormatJSON
	case "markdown":
		return FormatMarkdown
	default:
		return format
	}
}

// Format returns the effective output format.
func (r *Renderer) Format() string {
	return r.format
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Notice writes a line to the error stream, keeping stdout parseable.
func (r *Renderer) Notice(format string, args ...any) {
	_, _ = fmt.Fprintf(r.errOut, format+"\n", args...)
}

// Text writes a line to stdout.
func (r *Renderer) Text(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// QueryResult renders a governed result. Warnings and suggestions go to the
// error stream in tabular formats.
func (r *Renderer) QueryResult(res *core.QueryResult) error {
	if r.format == FormatJSON {
		return r.JSON(res)
	}

	cols := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		cols[i] = c.Name
	}
	rows := make([][]any, len(res.Rows))
	for i, row := range res.Rows {
		values := make([]any, len(cols))
		for j, col := range cols {
			values[j] = row[col]
		}
		rows[i] = values
	}

	r.Rows(cols, rows)
	if r.format == FormatTable {
		_, _ = fmt.Fprintf(r.out, "(%d rows, %d ms)\n", res.RowCount, res.ExecutionTimeMs)
	}
	if res.Warning != "" {
		r.Notice("Warning: %s", res.Warning)
	}
	if res.Suggestion != "" {
		r.Notice("Suggestion: %s", res.Suggestion)
	}
	return nil
}

// Rows renders a grid of values in table, CSV or markdown form.
func (r *Renderer) Rows(cols []string, rows [][]any) {
	if r.format == FormatTable && len(rows) == 0 {
		_, _ = fmt.Fprintln(r.out, "(0 rows)")
		return
	}
	if r.format == FormatCSV {
		r.renderCSV(cols, rows)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range rows {
		values := make(table.Row, len(row))
		for i, v := range row {
			values[i] = formatValue(v)
		}
		t.AppendRow(values)
	}

	if r.format == FormatMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

// renderCSV writes RFC 4180 records.
func (r *Renderer) renderCSV(cols []string, rows [][]any) {
	w := csv.NewWriter(r.out)
	_ = w.Write(cols)
	record := make([]string, len(cols))
	for _, row := range rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, formatValue(v))
		}
		_ = w.Write(record)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		r.Notice("Warning: %v", err)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}
