package engine

import (
	"regexp"
	"strings"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

// Analyzer suggestions, in rule order.
const (
	SuggestionDirectScan   = "Direct table queries may return large datasets. Add filters and limits."
	SuggestionAddLimit     = "Consider adding '| take N' to limit results."
	SuggestionTimeFilter   = "Consider adding time filters for better performance."
	SuggestionFilterBefore = "Move 'where' clauses before aggregations for better performance."
)

var (
	leadingIdentifierRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*(?:\|\s*([A-Za-z_-]+)|$)`)
	limitClauseRe       = regexp.MustCompile(`(?i)\|\s*(?:take|limit)\s+\d+`)
	agoFilterRe         = regexp.MustCompile(`(?i)where.*ago\(`)
	timeColumnRe        = regexp.MustCompile(`(?i)timegenerated|timestamp`)
	whereStageRe        = regexp.MustCompile(`(?i)\|\s*where\b`)
	summarizeStageRe    = regexp.MustCompile(`(?i)\|\s*summarize\b`)
)

// restrictingOperators bound the rows flowing out of a table reference.
var restrictingOperators = map[string]bool{
	"where":  true,
	"filter": true,
	"take":   true,
	"limit":  true,
	"top":    true,
	"sample": true,
}

// Analysis is the advisory output of Analyze.
type Analysis struct {
	Suggestions []string
	Risk        core.RiskLevel
}

// Analyze inspects the textual shape of a query. It has no side effects.
func Analyze(query string) Analysis {
	a := Analysis{Suggestions: []string{}, Risk: core.RiskLow}
	trimmed := strings.TrimSpace(query)

	if isDirectTableScan(trimmed) {
		a.Suggestions = append(a.Suggestions, SuggestionDirectScan)
		a.Risk = a.Risk.Max(core.RiskHigh)
	}

	if !limitClauseRe.MatchString(trimmed) {
		a.Suggestions = append(a.Suggestions, SuggestionAddLimit)
		a.Risk = a.Risk.Max(core.RiskMedium)
	}

	if !agoFilterRe.MatchString(trimmed) && !timeColumnRe.MatchString(trimmed) {
		a.Suggestions = append(a.Suggestions, SuggestionTimeFilter)
	}

	if where, summarize := whereStageRe.FindStringIndex(trimmed), summarizeStageRe.FindStringIndex(trimmed); where != nil && summarize != nil && where[0] > summarize[0] {
		a.Suggestions = append(a.Suggestions, SuggestionFilterBefore)
	}

	return a
}

// isDirectTableScan reports whether the first stage is a bare table reference
// whose rows are not restricted by the following operator.
func isDirectTableScan(query string) bool {
	m := leadingIdentifierRe.FindStringSubmatch(query)
	if m == nil {
		return false
	}
	next := strings.ToLower(m[2])
	return next == "" || !restrictingOperators[next]
}
