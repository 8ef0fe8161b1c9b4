package query

import "strings"

// Result types returned by the executor. All of them round-trip through
// encoding/json unchanged, which is what lets the gateway cache them: a
// value read back from the cache is indistinguishable from a fresh fetch.

// PingResult reports connection health and round-trip latency.
type PingResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

// TableInfo identifies one table or view in a schema listing.
type TableInfo struct {
	Name string `json:"name"`
	Type string `json:"table_type"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// TableSchema is the full column layout of a table.
type TableSchema struct {
	TableName string       `json:"table_name"`
	Columns   []ColumnInfo `json:"columns"`
}

// ResultSet is the outcome of one bounded SELECT. Rows hold JSON-typed
// values; Truncated is set when the row limit cut the result short.
type ResultSet struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated,omitempty"`
}

// ParameterDirection is a procedure parameter's mode.
type ParameterDirection string

// Parameter directions as reported by the catalog.
const (
	DirectionIn    ParameterDirection = "IN"
	DirectionOut   ParameterDirection = "OUT"
	DirectionInOut ParameterDirection = "INOUT"
)

// ParseParameterDirection folds a catalog mode string to a direction.
// Unrecognized modes come back as-is, uppercased.
func ParseParameterDirection(s string) ParameterDirection {
	return ParameterDirection(strings.ToUpper(strings.TrimSpace(s)))
}

// ProcedureInfo identifies one procedure or function in a schema listing.
type ProcedureInfo struct {
	Name     string `json:"name"`
	Schema   string `json:"schema"`
	Type     string `json:"procedure_type"`
	ReadOnly bool   `json:"is_read_only"`
}

// ProcedureParameter describes one parameter of a procedure. Length,
// Precision, and Scale apply only to sized types and are omitted otherwise.
type ProcedureParameter struct {
	Name       string             `json:"name"`
	Position   int                `json:"position"`
	DataType   string             `json:"data_type"`
	Direction  ParameterDirection `json:"direction"`
	Length     *int64             `json:"length,omitempty"`
	Precision  *int64             `json:"precision,omitempty"`
	Scale      *int64             `json:"scale,omitempty"`
	HasDefault bool               `json:"has_default"`
}

// ProcedureSchema is the full signature of a procedure.
type ProcedureSchema struct {
	Name       string               `json:"name"`
	Schema     string               `json:"schema"`
	Parameters []ProcedureParameter `json:"parameters"`
}
