package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a canonical key string.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilProvider   = errors.New("cache: provider is nil")
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrKeyTooLong    = errors.New("cache: key exceeds max length")
	ErrMissingTenant = errors.New("cache: tenant is required")
)

// Provider is the contract every cache store satisfies.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use; no
//     operation may corrupt internal state under concurrent access.
//   - Context: methods should honor cancellation/deadlines where applicable.
//   - Errors: Get never errors; store-internal faults surface as a miss on
//     read paths and as (false, error) on write paths, never as a request
//     failure to callers of CachedOrFetch.
type Provider interface {
	// Get returns the stored value if present and unexpired, refreshing its
	// recency. Returns (nil, false) on miss. The returned slice is the stored
	// backing array; callers must not modify it.
	Get(ctx context.Context, key Key) ([]byte, bool)

	// Set stores value with expiry now+ttl. Oversized values and non-positive
	// TTLs are not stored and return (false, nil): a documented negative
	// outcome, not an error. May synchronously evict another entry when the
	// store is at capacity.
	Set(ctx context.Context, key Key, value []byte, ttl time.Duration) (bool, error)

	// Delete removes the entry if present. Idempotent.
	Delete(ctx context.Context, key Key) error

	// Exists reports presence without returning the value or refreshing
	// recency.
	Exists(ctx context.Context, key Key) bool

	// DeleteByPrefix removes every entry whose canonical key starts with
	// prefix and returns the number removed. Namespace.Prefix and
	// Namespace.TenantPrefix build canonical prefixes.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// Metadata returns entry bookkeeping without the value, for diagnostics.
	Metadata(ctx context.Context, key Key) (Metadata, bool)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// HealthCheck reports liveness. It never errors and is used for
	// reporting only; it must not gate request handling.
	HealthCheck(ctx context.Context) bool

	// Stats returns a consistent snapshot of the counters. Snapshots need not
	// be linearizable with concurrent mutators, but counters never go
	// negative and never decrease within a process.
	Stats(ctx context.Context) Stats
}

// StatsResetter is implemented by providers whose counters can be zeroed
// explicitly. Entry count and size gauges are unaffected.
type StatsResetter interface {
	ResetStats()
}

// Metadata is the per-entry bookkeeping exposed by Provider.Metadata.
type Metadata struct {
	InsertedAt   time.Time     `json:"inserted_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
	SizeBytes    int           `json:"size_bytes"`
	TTLRemaining time.Duration `json:"ttl_remaining"`
}

// Stats is a point-in-time snapshot of provider counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Sets      uint64 `json:"sets"`
	Deletes   uint64 `json:"deletes"`
	Evictions uint64 `json:"evictions"`
	Errors    uint64 `json:"errors"`

	EntryCount int64 `json:"entry_count"`
	SizeBytes  int64 `json:"size_bytes"`
}

// HitRate returns hits/(hits+misses), or 0 when no lookups have happened.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ValidateKeyString checks the shape of a canonical key string.
func ValidateKeyString(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
