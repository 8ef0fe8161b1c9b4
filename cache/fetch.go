package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// FetchFunc produces a fresh value from the backing source. It is the only
// suspension point in the cached-or-fetch path; the cache itself never does
// I/O.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// CachedOrFetch is the lookup every tool handler goes through: cache first,
// fall back to fetch, populate best-effort. It returns the value, whether it
// came from the cache, and the fetch error if fetching was needed and failed.
//
// A cache malfunction never fails the request: a failed or corrupt Get is
// treated as a miss, and a failed or rejected Set is logged and ignored - the
// fresh value is still returned. Concurrent misses on one key each run their
// own fetch; duplicate in-flight fetches are accepted rather than
// deduplicated.
func CachedOrFetch[T any](
	ctx context.Context,
	p Provider,
	key Key,
	ttl time.Duration,
	logger *zap.Logger,
	fetch FetchFunc[T],
) (T, bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if p != nil {
		if raw, ok := p.Get(ctx, key); ok {
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, true, nil
			}
			// Corrupt entry: drop it and refetch.
			logger.Debug("cache entry undecodable, refetching",
				zap.String("key", key.String()))
			_ = p.Delete(ctx, key)
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	if p == nil || ttl <= 0 {
		return value, false, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache encode failed, value not stored",
			zap.String("key", key.String()),
			zap.Error(err))
		return value, false, nil
	}

	stored, err := p.Set(ctx, key, raw, ttl)
	switch {
	case err != nil:
		logger.Warn("cache store failed, value not stored",
			zap.String("key", key.String()),
			zap.Error(err))
	case !stored:
		logger.Debug("cache store rejected",
			zap.String("key", key.String()),
			zap.Int("size_bytes", len(raw)))
	}

	return value, false, nil
}
