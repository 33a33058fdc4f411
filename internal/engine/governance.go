package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

// Limiter applies the warning/soft/hard row-count tiers to a result set.
type Limiter struct {
	limits core.QueryLimits
	logger *slog.Logger
}

// NewLimiter creates a limiter for limits.
// If logger is nil, a discard logger is used.
func NewLimiter(limits core.QueryLimits, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Limiter{limits: limits, logger: logger}
}

// Apply builds a governed result from columns and rows. When query is empty
// the analyzer is skipped.
func (l *Limiter) Apply(columns []core.Column, rows []core.Row, query string) *core.QueryResult {
	analysis := Analysis{Suggestions: []string{}, Risk: core.RiskLow}
	if strings.TrimSpace(query) != "" {
		analysis = Analyze(query)
	}

	result := &core.QueryResult{Columns: columns, Rows: rows}
	rowCount := len(rows)

	switch {
	case rowCount <= l.limits.WarningThreshold:
		if len(analysis.Suggestions) > 0 {
			result.Suggestion = analysis.Suggestions[0]
		}

	case rowCount <= l.limits.SoftLimit:
		result.Suggestion = fmt.Sprintf("Query returned %d rows. Consider adding 'take %d' for better performance.%s",
			rowCount, l.limits.WarningThreshold, joinSuggestions(analysis.Suggestions))

	case rowCount <= l.limits.HardLimit:
		result.Warning = fmt.Sprintf("Large result set: %d rows (%s risk). Consider using time filters or aggregations to reduce data volume.%s",
			rowCount, analysis.Risk, joinSuggestions(analysis.Suggestions))

	default:
		result.Rows = rows[:l.limits.HardLimit]
		result.Truncated = true
		result.OriginalRowCount = rowCount
		result.Warning = strings.TrimSpace(fmt.Sprintf("Results truncated at %d rows (original: %d rows). %s",
			l.limits.HardLimit, rowCount, strings.Join(analysis.Suggestions, " ")))
		l.logger.Warn("query result truncated due to size limits",
			slog.Int("original_row_count", rowCount),
			slog.Int("truncated_row_count", l.limits.HardLimit),
			slog.String("query_risk", string(analysis.Risk)))
	}

	result.RowCount = len(result.Rows)
	return result
}

// joinSuggestions renders suggestions as a space-prefixed sentence list.
func joinSuggestions(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	return " " + strings.Join(suggestions, " ")
}
