package gateway

import (
	"strings"

	"github.com/jonwraymond/querygate/query"
)

// Tool parameters. Schema is optional everywhere it appears: an empty value
// falls back to the caller's resolved tenant schema, then to the configured
// default.

// ListTablesParams selects the schema whose tables are listed.
type ListTablesParams struct {
	Schema string `json:"schema,omitempty"`
}

// Validate checks the parameter shapes; scope resolution happens later.
func (p ListTablesParams) Validate() error {
	if p.Schema != "" {
		return query.ValidateIdentifier(p.Schema, "schema")
	}
	return nil
}

// DescribeTableParams names the table to describe.
type DescribeTableParams struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
}

// Validate checks the parameter shapes.
func (p DescribeTableParams) Validate() error {
	if p.Table == "" {
		return ErrMissingTable
	}
	if err := query.ValidateIdentifier(p.Table, "table"); err != nil {
		return err
	}
	if p.Schema != "" {
		return query.ValidateIdentifier(p.Schema, "schema")
	}
	return nil
}

// ListProceduresParams selects the schema whose procedures are listed.
type ListProceduresParams struct {
	Schema string `json:"schema,omitempty"`
}

// Validate checks the parameter shapes.
func (p ListProceduresParams) Validate() error {
	if p.Schema != "" {
		return query.ValidateIdentifier(p.Schema, "schema")
	}
	return nil
}

// DescribeProcedureParams names the procedure to describe.
type DescribeProcedureParams struct {
	Procedure string `json:"procedure"`
	Schema    string `json:"schema,omitempty"`
}

// Validate checks the parameter shapes.
func (p DescribeProcedureParams) Validate() error {
	if p.Procedure == "" {
		return ErrMissingProcedure
	}
	if err := query.ValidateIdentifier(p.Procedure, "procedure"); err != nil {
		return err
	}
	if p.Schema != "" {
		return query.ValidateIdentifier(p.Schema, "schema")
	}
	return nil
}

// ExecuteSQLParams carries one statement and an optional row limit. A zero
// limit, or one above the snapshot's row_limit, is capped to the snapshot's
// value.
type ExecuteSQLParams struct {
	SQL   string `json:"sql"`
	Limit uint32 `json:"limit,omitempty"`
}

// Validate checks that a statement is present. Read-only classification is
// a separate step so its error carries the offending keyword.
func (p ExecuteSQLParams) Validate() error {
	if strings.TrimSpace(p.SQL) == "" {
		return ErrMissingSQL
	}
	return nil
}
