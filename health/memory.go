package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig bounds the gateway process's heap. The cache is the
// main in-process memory consumer, so this catches a misconfigured cache
// budget before the kernel does.
type MemoryCheckerConfig struct {
	// MaxHeapBytes is the heap budget the ratios apply to. Zero makes the
	// checker report-only: always healthy, details still populated.
	MaxHeapBytes uint64

	// WarnRatio of MaxHeapBytes reports degraded. Default: 0.8.
	WarnRatio float64

	// CriticalRatio of MaxHeapBytes reports unhealthy. Default: 0.95.
	CriticalRatio float64
}

// MemoryChecker reports heap usage against a configured budget.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker builds a memory checker, applying defaults and keeping
// the ratios ordered.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarnRatio <= 0 || config.WarnRatio >= 1 {
		config.WarnRatio = 0.8
	}
	if config.CriticalRatio <= 0 || config.CriticalRatio > 1 {
		config.CriticalRatio = 0.95
	}
	if config.CriticalRatio < config.WarnRatio {
		config.CriticalRatio = config.WarnRatio
	}
	return &MemoryChecker{config: config}
}

func (m *MemoryChecker) Name() string { return "memory" }

// Check reads runtime heap stats and grades them against the budget.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	details := map[string]any{
		"heap_inuse_bytes": stats.HeapInuse,
		"heap_sys_bytes":   stats.HeapSys,
		"gc_runs":          stats.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}

	if m.config.MaxHeapBytes == 0 {
		return Healthy("heap unbudgeted").WithDetails(details)
	}

	ratio := float64(stats.HeapInuse) / float64(m.config.MaxHeapBytes)
	details["budget_bytes"] = m.config.MaxHeapBytes
	details["budget_used"] = ratio

	switch {
	case ratio >= m.config.CriticalRatio:
		return Unhealthy(
			fmt.Sprintf("heap at %.0f%% of budget", ratio*100),
			ErrCheckFailed,
		).WithDetails(details)
	case ratio >= m.config.WarnRatio:
		return Degraded(
			fmt.Sprintf("heap at %.0f%% of budget", ratio*100),
		).WithDetails(details)
	default:
		return Healthy(
			fmt.Sprintf("heap at %.0f%% of budget", ratio*100),
		).WithDetails(details)
	}
}
