package engine

import (
	"testing"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name            string
		query           string
		wantRisk        core.RiskLevel
		wantSuggestions []string
	}{
		{
			name:            "bounded and time filtered",
			query:           "MyTable | take 10 | where TimeGenerated > ago(1h)",
			wantRisk:        core.RiskLow,
			wantSuggestions: []string{},
		},
		{
			name:     "bare table",
			query:    "MyTable",
			wantRisk: core.RiskHigh,
			wantSuggestions: []string{
				SuggestionDirectScan,
				SuggestionAddLimit,
				SuggestionTimeFilter,
			},
		},
		{
			name:     "table piped to projection",
			query:    "  StormEvents | project State  ",
			wantRisk: core.RiskHigh,
			wantSuggestions: []string{
				SuggestionDirectScan,
				SuggestionAddLimit,
				SuggestionTimeFilter,
			},
		},
		{
			name:            "filtered without limit",
			query:           "Events | where Timestamp > ago(1d)",
			wantRisk:        core.RiskMedium,
			wantSuggestions: []string{SuggestionAddLimit},
		},
		{
			name:     "where after summarize",
			query:    "Events | where Level == 'Error' | summarize count() by Host | where count_ > 10 | take 5",
			wantRisk: core.RiskLow,
			wantSuggestions: []string{
				SuggestionTimeFilter,
			},
		},
		{
			name:     "first where after summarize",
			query:    "let x = Events | summarize c = count() by bin(Timestamp, 1h); x | where c > 1 | limit 100",
			wantRisk: core.RiskLow,
			wantSuggestions: []string{
				SuggestionFilterBefore,
			},
		},
		{
			name:     "summarize without where",
			query:    "Events | take 100 | summarize count()",
			wantRisk: core.RiskLow,
			wantSuggestions: []string{
				SuggestionTimeFilter,
			},
		},
		{
			name:     "let statement is not a direct scan",
			query:    "let t = 1; print t",
			wantRisk: core.RiskMedium,
			wantSuggestions: []string{
				SuggestionAddLimit,
				SuggestionTimeFilter,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.query)
			assert.Equal(t, tt.wantRisk, got.Risk)
			assert.Equal(t, tt.wantSuggestions, got.Suggestions)
		})
	}
}

func TestAnalyze_RiskNeverDecreases(t *testing.T) {
	// Rule 1 sets high; rule 2 must not lower it to medium.
	got := Analyze("MyTable | project a")
	assert.Equal(t, core.RiskHigh, got.Risk)
	assert.Contains(t, got.Suggestions, SuggestionAddLimit)
}
