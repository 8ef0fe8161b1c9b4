package resilience

import "errors"

// Policy sentinels. Transports match on these to tell saturation from
// outage when choosing a status code.
var (
	// ErrCircuitOpen rejects calls while the breaker deems the database down.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded rejects calls over the tenant's request budget.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull rejects calls when every execution slot is taken.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout cuts off calls that outlive their deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)
