package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func healthyChecker(name string) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		return Healthy("ok")
	})
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()

	if agg.config.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", agg.config.Timeout)
	}
	if agg.config.Serial {
		t.Error("probes default to concurrent")
	}
}

func TestAggregator_RegisterAndNames(t *testing.T) {
	agg := NewAggregator()

	agg.Register("database", healthyChecker("database"))
	agg.Register("cache", healthyChecker("cache"))
	agg.Register("database", healthyChecker("database")) // replace, not duplicate

	names := agg.CheckerNames()
	if len(names) != 2 {
		t.Fatalf("CheckerNames() = %v, want 2 entries", names)
	}
	if names[0] != "database" || names[1] != "cache" {
		t.Errorf("CheckerNames() = %v, want registration order", names)
	}
}

func TestAggregator_Unregister(t *testing.T) {
	agg := NewAggregator()
	agg.Register("database", healthyChecker("database"))
	agg.Register("cache", healthyChecker("cache"))

	agg.Unregister("database")

	names := agg.CheckerNames()
	if len(names) != 1 || names[0] != "cache" {
		t.Errorf("CheckerNames() = %v, want [cache]", names)
	}
}

func TestAggregator_Check(t *testing.T) {
	agg := NewAggregator()
	agg.Register("database", healthyChecker("database"))

	result, err := agg.Check(context.Background(), "database")
	if err != nil {
		t.Fatalf("Check err = %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", result.Status)
	}
	if result.Timestamp.IsZero() {
		t.Error("Timestamp not recorded")
	}

	if _, err := agg.Check(context.Background(), "ghost"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(ghost) err = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register("database", healthyChecker("database"))
	agg.Register("cache", NewCheckerFunc("cache", func(ctx context.Context) Result {
		return Degraded("near capacity")
	}))

	results := agg.CheckAll(context.Background())

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results["database"].Status != StatusHealthy {
		t.Errorf("database = %v, want healthy", results["database"].Status)
	}
	if results["cache"].Status != StatusDegraded {
		t.Errorf("cache = %v, want degraded", results["cache"].Status)
	}
}

func TestAggregator_CheckAllEmpty(t *testing.T) {
	agg := NewAggregator()

	results := agg.CheckAll(context.Background())
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
	if agg.OverallStatus(results) != StatusHealthy {
		t.Error("empty set should be healthy")
	}
}

func TestAggregator_CheckAllConcurrent(t *testing.T) {
	agg := NewAggregator()

	var inFlight, peak atomic.Int32
	slow := func(name string) Checker {
		return NewCheckerFunc(name, func(ctx context.Context) Result {
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			return Healthy("ok")
		})
	}
	agg.Register("a", slow("a"))
	agg.Register("b", slow("b"))
	agg.Register("c", slow("c"))

	results := agg.CheckAll(context.Background())
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if got := peak.Load(); got < 2 {
		t.Errorf("peak concurrent probes = %d, want >= 2", got)
	}
}

func TestAggregator_CheckAllSerial(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Serial: true})

	var inFlight, peak atomic.Int32
	probe := func(name string) Checker {
		return NewCheckerFunc(name, func(ctx context.Context) Result {
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			if cur > peak.Load() {
				peak.Store(cur)
			}
			time.Sleep(5 * time.Millisecond)
			return Healthy("ok")
		})
	}
	agg.Register("a", probe("a"))
	agg.Register("b", probe("b"))

	_ = agg.CheckAll(context.Background())
	if got := peak.Load(); got != 1 {
		t.Errorf("peak concurrent probes = %d, want 1", got)
	}
}

func TestAggregator_SlowCheckerTimesOut(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register("stuck", NewCheckerFunc("stuck", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return Healthy("too late")
	}))

	results := agg.CheckAll(context.Background())

	result := results["stuck"]
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", result.Status)
	}
	if !errors.Is(result.Error, ErrCheckTimeout) {
		t.Errorf("Error = %v, want ErrCheckTimeout", result.Error)
	}
}

func TestAggregator_OverallStatus(t *testing.T) {
	agg := NewAggregator()

	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{
			name: "all healthy",
			results: map[string]Result{
				"a": {Status: StatusHealthy},
				"b": {Status: StatusHealthy},
			},
			want: StatusHealthy,
		},
		{
			name: "one degraded",
			results: map[string]Result{
				"a": {Status: StatusHealthy},
				"b": {Status: StatusDegraded},
			},
			want: StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			results: map[string]Result{
				"a": {Status: StatusDegraded},
				"b": {Status: StatusUnhealthy},
			},
			want: StatusUnhealthy,
		},
		{
			name:    "empty",
			results: map[string]Result{},
			want:    StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_Checker(t *testing.T) {
	inner := NewAggregator()
	inner.Register("database", healthyChecker("database"))
	inner.Register("cache", NewCheckerFunc("cache", func(ctx context.Context) Result {
		return Unhealthy("probe failed", ErrCheckFailed)
	}))

	outer := NewAggregator()
	outer.Register("deps", inner.Checker())

	results := outer.CheckAll(context.Background())
	deps := results["deps"]
	if deps.Status != StatusUnhealthy {
		t.Errorf("nested status = %v, want unhealthy", deps.Status)
	}
	if len(deps.Details) != 2 {
		t.Errorf("nested details = %v, want entries for both probes", deps.Details)
	}
}
