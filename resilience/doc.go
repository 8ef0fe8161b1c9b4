// Package resilience guards the gateway's database path.
//
// Every database call runs through a composed policy chain: a bulkhead
// admits it, the circuit breaker decides whether the database is worth
// calling at all, transient connection faults are retried, and a deadline
// bounds each attempt. The HTTP edge reuses the token bucket on its own to
// throttle tool calls per tenant.
//
// The policies are independent values; Executor composes them in a fixed
// order:
//
//	policies := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 16})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2})),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	err := policies.Execute(ctx, func(ctx context.Context) error {
//	    return db.PingContext(ctx)
//	})
//
// Each policy refuses work through its own sentinel (ErrBulkheadFull,
// ErrCircuitOpen, ErrRateLimitExceeded, ErrTimeout), so transports can map
// saturation, outage, and slowness to distinct status codes.
package resilience
