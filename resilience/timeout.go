package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds each operation with a deadline. The operation receives a
// context that expires at the deadline; if it ignores cancellation, Execute
// still returns ErrTimeout on time and the operation finishes detached.
type Timeout struct {
	limit time.Duration
}

// NewTimeout builds a Timeout. A non-positive limit defaults to 30s.
func NewTimeout(limit time.Duration) *Timeout {
	if limit <= 0 {
		limit = 30 * time.Second
	}
	return &Timeout{limit: limit}
}

// Execute runs op under the deadline.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	// Buffered so a late op can deposit its result and exit.
	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// ExecuteWithTimeout runs op under a one-off deadline.
func ExecuteWithTimeout(ctx context.Context, limit time.Duration, op func(context.Context) error) error {
	return NewTimeout(limit).Execute(ctx, op)
}
