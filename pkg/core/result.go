package core

// =============================================================================
// Tabular results
// =============================================================================

// DynamicType is the column type used when the store does not report one.
const DynamicType = "dynamic"

// Column describes one output field. Order matches the store's column order.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Row maps a column name to its value. Values are converted from the wire
// representation using the paired Column's declared type.
type Row map[string]any

// QueryResult is a governed result set.
// RowCount always equals len(Rows). When Truncated is set, OriginalRowCount
// holds the pre-truncation size and RowCount equals the configured hard limit.
type QueryResult struct {
	Columns          []Column `json:"columns"`
	Rows             []Row    `json:"rows"`
	RowCount         int      `json:"rowCount"`
	ExecutionTimeMs  int64    `json:"executionTimeMs"`
	Warning          string   `json:"warning,omitempty"`
	Suggestion       string   `json:"suggestion,omitempty"`
	Truncated        bool     `json:"truncated,omitempty"`
	OriginalRowCount int      `json:"originalRowCount,omitempty"`
}

// RiskLevel is the analyzer's coarse estimate of how expensive a query is.
type RiskLevel string

// Risk levels, ordered low < medium < high.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// rank orders risk levels for monotonic escalation.
func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Max returns the higher of r and other.
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.rank() > r.rank() {
		return other
	}
	return r
}

// =============================================================================
// Listings and schemas
// =============================================================================

// TableSummary is one entry of a table listing.
type TableSummary struct {
	Folder       string `json:"folder,omitempty"`
	Name         string `json:"name"`
	DatabaseName string `json:"databaseName"`
	Description  string `json:"description,omitempty"`
}

// TableListResult wraps a table listing.
type TableListResult struct {
	Tables          []TableSummary `json:"tables"`
	ExecutionTimeMs int64          `json:"executionTimeMs"`
}

// FunctionSummary is one entry of a stored-function listing.
type FunctionSummary struct {
	Folder      string `json:"folder,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// FunctionListResult wraps a function listing.
type FunctionListResult struct {
	Functions       []FunctionSummary `json:"functions"`
	ExecutionTimeMs int64             `json:"executionTimeMs"`
}

// DatabaseSummary is one entry of a database listing.
type DatabaseSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DatabaseListResult wraps a database listing.
type DatabaseListResult struct {
	Databases       []DatabaseSummary `json:"databases"`
	ExecutionTimeMs int64             `json:"executionTimeMs"`
}

// TableSchema is the ordered column list of a table.
type TableSchema struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// TableSchemaResult wraps a table schema lookup.
type TableSchemaResult struct {
	Schema          TableSchema `json:"schema"`
	ExecutionTimeMs int64       `json:"executionTimeMs"`
}
