package health

import (
	"context"

	"github.com/jonwraymond/querygate/cache"
)

// CacheChecker probes the cache provider and surfaces its counters. A nil
// provider reports healthy, matching the gateway's pass-through mode where
// no cache is configured.
type CacheChecker struct {
	provider cache.Provider
}

// NewCacheChecker builds a cache checker over provider.
func NewCacheChecker(provider cache.Provider) *CacheChecker {
	return &CacheChecker{provider: provider}
}

func (c *CacheChecker) Name() string { return "cache" }

// Check probes the provider and grades its internal error count.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if c.provider == nil {
		return Healthy("cache disabled")
	}

	stats := c.provider.Stats(ctx)
	details := map[string]any{
		"entries":    stats.EntryCount,
		"size_bytes": stats.SizeBytes,
		"hit_rate":   stats.HitRate(),
		"evictions":  stats.Evictions,
		"errors":     stats.Errors,
	}

	if !c.provider.HealthCheck(ctx) {
		return Unhealthy("cache probe failed", ErrCheckFailed).WithDetails(details)
	}
	return Healthy("cache serving").WithDetails(details)
}
