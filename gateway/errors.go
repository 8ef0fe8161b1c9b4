package gateway

import "errors"

// Sentinel errors for gateway construction and request validation.
var (
	ErrNilExecutor = errors.New("gateway: nil executor")
	ErrNilHolder   = errors.New("gateway: nil runtime holder")

	// ErrNoSchema is returned when neither the request, the caller's
	// tenant resolution, nor the configured default names a schema.
	ErrNoSchema = errors.New("gateway: no schema in scope")

	ErrMissingSQL       = errors.New("gateway: sql is required")
	ErrMissingTable     = errors.New("gateway: table is required")
	ErrMissingProcedure = errors.New("gateway: procedure is required")
)
