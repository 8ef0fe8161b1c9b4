package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePinger struct {
	err   error
	delay time.Duration
}

func (p *fakePinger) PingContext(ctx context.Context) error {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

func TestNewDatabaseChecker_Defaults(t *testing.T) {
	checker := NewDatabaseChecker(&fakePinger{})

	if checker.config.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", checker.config.Timeout)
	}
	if checker.config.DegradedAfter != 500*time.Millisecond {
		t.Errorf("DegradedAfter = %v, want 500ms", checker.config.DegradedAfter)
	}
	if checker.Name() != "database" {
		t.Errorf("Name() = %q, want database", checker.Name())
	}
}

func TestDatabaseChecker_Reachable(t *testing.T) {
	checker := NewDatabaseChecker(&fakePinger{})

	result := checker.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", result.Status)
	}
	if _, ok := result.Details["latency_ms"]; !ok {
		t.Errorf("Details missing latency_ms: %v", result.Details)
	}
}

func TestDatabaseChecker_Unreachable(t *testing.T) {
	dialErr := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	checker := NewDatabaseChecker(&fakePinger{err: dialErr})

	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", result.Status)
	}
	if !errors.Is(result.Error, dialErr) {
		t.Errorf("Error = %v, want the dial error", result.Error)
	}
}

func TestDatabaseChecker_SlowPingDegrades(t *testing.T) {
	checker := NewDatabaseChecker(&fakePinger{delay: 30 * time.Millisecond}, DatabaseCheckerConfig{
		Timeout:       time.Second,
		DegradedAfter: 10 * time.Millisecond,
	})

	result := checker.Check(context.Background())

	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", result.Status)
	}
}

func TestDatabaseChecker_TimeoutIsUnhealthy(t *testing.T) {
	checker := NewDatabaseChecker(&fakePinger{delay: time.Second}, DatabaseCheckerConfig{
		Timeout: 20 * time.Millisecond,
	})

	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", result.Status)
	}
	if !errors.Is(result.Error, context.DeadlineExceeded) {
		t.Errorf("Error = %v, want deadline exceeded", result.Error)
	}
}
