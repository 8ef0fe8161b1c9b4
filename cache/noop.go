package cache

import (
	"context"
	"time"
)

// NoopCache is the null-object Provider used when caching is disabled at the
// deployment level. Every Get is a miss, every write succeeds without storing
// anything, and Stats always reports zero counts, so callers see no
// behavioral difference beyond the absence of hits.
type NoopCache struct{}

// NewNoop returns the no-op provider.
func NewNoop() *NoopCache {
	return &NoopCache{}
}

func (*NoopCache) Get(context.Context, Key) ([]byte, bool) { return nil, false }

func (*NoopCache) Set(context.Context, Key, []byte, time.Duration) (bool, error) {
	return false, nil
}

func (*NoopCache) Delete(context.Context, Key) error { return nil }

func (*NoopCache) Exists(context.Context, Key) bool { return false }

func (*NoopCache) DeleteByPrefix(context.Context, string) (int, error) { return 0, nil }

func (*NoopCache) Metadata(context.Context, Key) (Metadata, bool) { return Metadata{}, false }

func (*NoopCache) Clear(context.Context) error { return nil }

func (*NoopCache) HealthCheck(context.Context) bool { return true }

func (*NoopCache) Stats(context.Context) Stats { return Stats{} }

var _ Provider = (*NoopCache)(nil)
