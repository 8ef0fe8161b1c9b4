package query

import "errors"

// Sentinel errors for statement classification and execution.
var (
	// ErrNotReadOnly is returned when a statement contains a write
	// operation and the gateway runs in read-only mode.
	ErrNotReadOnly = errors.New("query: statement not allowed in read-only mode")

	// ErrInvalidIdentifier is returned when a schema, table, or procedure
	// name fails validation.
	ErrInvalidIdentifier = errors.New("query: invalid identifier")

	// ErrSchemaDenied is returned when the schema filter refuses access.
	ErrSchemaDenied = errors.New("query: schema access denied")

	// ErrNotFound is returned when a described object does not exist.
	ErrNotFound = errors.New("query: object not found")

	// ErrNilDB is returned when an executor is constructed without a
	// database handle.
	ErrNilDB = errors.New("query: nil database handle")

	// ErrNilHolder is returned when an executor is constructed without a
	// runtime snapshot holder.
	ErrNilHolder = errors.New("query: nil runtime holder")
)
