package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior. Backoff is exponential with jitter:
// the delay doubles each attempt, is capped at MaxDelay, and gains up to 25%
// random slack so concurrent callers do not retry in lockstep.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// RetryIf reports whether an error is worth another attempt.
	// Default: any non-nil error.
	RetryIf func(err error) bool

	// OnRetry is called before each retry with the attempt just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs an operation until it succeeds, the error is not retryable,
// or attempts run out.
type Retry struct {
	config RetryConfig
}

// NewRetry builds a Retry, applying defaults for zero fields.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute runs op, retrying per the config. The last error is returned when
// attempts are exhausted; context cancellation during a backoff wait returns
// the context's error.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.backoff(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// backoff returns the jittered delay before retry number attempt.
func (r *Retry) backoff(attempt int) time.Duration {
	delay := r.config.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.config.MaxDelay {
			delay = r.config.MaxDelay
			break
		}
	}
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	// Up to 25% jitter. rand.N(x+1) tolerates sub-4ns delays.
	// #nosec G404 -- timing variance, not security material.
	return delay + rand.N(delay/4+1)
}
