package cache

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/jonwraymond/querygate/cache"

// TracedCache decorates a Provider with observability: one span per
// operation, hit/miss/set/rejection/eviction counters, and debug-level logs.
// Every call is forwarded unchanged and its outcome returned verbatim, so
// wrapping never alters cache semantics.
type TracedCache struct {
	inner  Provider
	tracer trace.Tracer
	logger *zap.Logger

	hits       metric.Int64Counter
	misses     metric.Int64Counter
	sets       metric.Int64Counter
	rejections metric.Int64Counter
	deletes    metric.Int64Counter
	evictions  metric.Int64Counter
}

// NewTraced wraps inner. Telemetry goes to the global OpenTelemetry
// providers; logger may be nil.
func NewTraced(inner Provider, logger *zap.Logger) (*TracedCache, error) {
	if inner == nil {
		return nil, ErrNilProvider
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	meter := otel.Meter(instrumentationName)

	hits, err := meter.Int64Counter("cache.hits",
		metric.WithDescription("Cache lookups served from the store"),
		metric.WithUnit("{hit}"))
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter("cache.misses",
		metric.WithDescription("Cache lookups that fell through to fetch"),
		metric.WithUnit("{miss}"))
	if err != nil {
		return nil, err
	}
	sets, err := meter.Int64Counter("cache.sets",
		metric.WithDescription("Values stored"),
		metric.WithUnit("{set}"))
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("cache.rejections",
		metric.WithDescription("Stores declined for size or TTL"),
		metric.WithUnit("{rejection}"))
	if err != nil {
		return nil, err
	}
	deletes, err := meter.Int64Counter("cache.deletes",
		metric.WithDescription("Entries removed by delete operations"),
		metric.WithUnit("{delete}"))
	if err != nil {
		return nil, err
	}
	evictions, err := meter.Int64Counter("cache.evictions",
		metric.WithDescription("Entries evicted at capacity"),
		metric.WithUnit("{eviction}"))
	if err != nil {
		return nil, err
	}

	return &TracedCache{
		inner:      inner,
		tracer:     otel.Tracer(instrumentationName),
		logger:     logger,
		hits:       hits,
		misses:     misses,
		sets:       sets,
		rejections: rejections,
		deletes:    deletes,
		evictions:  evictions,
	}, nil
}

func keyAttrs(key Key) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("cache.namespace", string(key.Namespace)),
		attribute.String("cache.tenant", key.Tenant),
		attribute.String("cache.key", key.String()),
	}
}

func nsAttr(key Key) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("cache.namespace", string(key.Namespace)))
}

func (t *TracedCache) Get(ctx context.Context, key Key) ([]byte, bool) {
	ctx, span := t.tracer.Start(ctx, "cache.get",
		trace.WithAttributes(keyAttrs(key)...))
	defer span.End()

	value, ok := t.inner.Get(ctx, key)
	span.SetAttributes(attribute.Bool("cache.hit", ok))

	if ok {
		t.hits.Add(ctx, 1, nsAttr(key))
	} else {
		t.misses.Add(ctx, 1, nsAttr(key))
	}
	t.logger.Debug("cache get",
		zap.String("key", key.String()),
		zap.Bool("hit", ok))

	return value, ok
}

func (t *TracedCache) Set(ctx context.Context, key Key, value []byte, ttl time.Duration) (bool, error) {
	ctx, span := t.tracer.Start(ctx, "cache.set",
		trace.WithAttributes(append(keyAttrs(key),
			attribute.Int("cache.size_bytes", len(value)),
			attribute.String("cache.ttl", ttl.String()))...))
	defer span.End()

	stored, err := t.inner.Set(ctx, key, value, ttl)
	span.SetAttributes(attribute.Bool("cache.stored", stored))

	switch {
	case err != nil:
		span.RecordError(err)
		t.logger.Warn("cache set failed",
			zap.String("key", key.String()),
			zap.Error(err))
	case !stored:
		t.rejections.Add(ctx, 1, nsAttr(key))
		t.logger.Debug("cache set rejected",
			zap.String("key", key.String()),
			zap.Int("size_bytes", len(value)),
			zap.Duration("ttl", ttl))
	default:
		t.sets.Add(ctx, 1, nsAttr(key))
		t.logger.Debug("cache set",
			zap.String("key", key.String()),
			zap.Int("size_bytes", len(value)),
			zap.Duration("ttl", ttl))
	}

	return stored, err
}

func (t *TracedCache) Delete(ctx context.Context, key Key) error {
	ctx, span := t.tracer.Start(ctx, "cache.delete",
		trace.WithAttributes(keyAttrs(key)...))
	defer span.End()

	err := t.inner.Delete(ctx, key)
	if err != nil {
		span.RecordError(err)
		t.logger.Warn("cache delete failed",
			zap.String("key", key.String()),
			zap.Error(err))
	} else {
		t.deletes.Add(ctx, 1, nsAttr(key))
	}
	return err
}

func (t *TracedCache) Exists(ctx context.Context, key Key) bool {
	ctx, span := t.tracer.Start(ctx, "cache.exists",
		trace.WithAttributes(keyAttrs(key)...))
	defer span.End()

	ok := t.inner.Exists(ctx, key)
	span.SetAttributes(attribute.Bool("cache.hit", ok))
	return ok
}

func (t *TracedCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	ctx, span := t.tracer.Start(ctx, "cache.delete_by_prefix",
		trace.WithAttributes(attribute.String("cache.prefix", prefix)))
	defer span.End()

	removed, err := t.inner.DeleteByPrefix(ctx, prefix)
	span.SetAttributes(attribute.Int("cache.removed", removed))

	if err != nil {
		span.RecordError(err)
		t.logger.Warn("cache prefix delete failed",
			zap.String("prefix", prefix),
			zap.Error(err))
		return removed, err
	}
	t.logger.Debug("cache prefix delete",
		zap.String("prefix", prefix),
		zap.Int("removed", removed))
	return removed, nil
}

func (t *TracedCache) Metadata(ctx context.Context, key Key) (Metadata, bool) {
	ctx, span := t.tracer.Start(ctx, "cache.metadata",
		trace.WithAttributes(keyAttrs(key)...))
	defer span.End()

	meta, ok := t.inner.Metadata(ctx, key)
	span.SetAttributes(attribute.Bool("cache.hit", ok))
	return meta, ok
}

func (t *TracedCache) Clear(ctx context.Context) error {
	ctx, span := t.tracer.Start(ctx, "cache.clear")
	defer span.End()

	err := t.inner.Clear(ctx)
	if err != nil {
		span.RecordError(err)
		t.logger.Warn("cache clear failed", zap.Error(err))
	} else {
		t.logger.Debug("cache cleared")
	}
	return err
}

func (t *TracedCache) HealthCheck(ctx context.Context) bool {
	ctx, span := t.tracer.Start(ctx, "cache.health_check")
	defer span.End()

	ok := t.inner.HealthCheck(ctx)
	span.SetAttributes(attribute.Bool("cache.healthy", ok))
	return ok
}

func (t *TracedCache) Stats(ctx context.Context) Stats {
	return t.inner.Stats(ctx)
}

// ResetStats forwards to the wrapped provider when it supports resetting.
func (t *TracedCache) ResetStats() {
	if r, ok := t.inner.(StatsResetter); ok {
		r.ResetStats()
	}
}

// Close forwards to the wrapped provider when it holds resources.
func (t *TracedCache) Close() error {
	if c, ok := t.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// recordEviction reports a capacity eviction from the wrapped store. New
// wires it as the store's eviction hook.
func (t *TracedCache) recordEviction(key Key) {
	t.evictions.Add(context.Background(), 1, nsAttr(key))
	t.logger.Debug("cache eviction", zap.String("key", key.String()))
}

var _ Provider = (*TracedCache)(nil)
