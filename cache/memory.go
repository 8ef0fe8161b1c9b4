package cache

import (
	"container/list"
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults for InMemoryCache. MaxValueSize matches the wire-level payload
// ceiling of the query gateway.
const (
	DefaultMaxEntries   = 10000
	DefaultMaxValueSize = 1 << 20 // 1 MiB
	DefaultShardCount   = 16
)

// MemoryConfig configures InMemoryCache. Zero values take the defaults above;
// SweepInterval zero disables the background sweep (expiry is then purely
// lazy).
type MemoryConfig struct {
	// MaxEntries bounds the total entry count across all shards.
	// Negative means unbounded.
	MaxEntries int

	// MaxValueSize is the largest value Set will store, in bytes.
	MaxValueSize int

	// ShardCount is the number of lock partitions.
	ShardCount int

	// SweepInterval enables a background sweep that reclaims expired entries
	// nobody reads again. Zero disables it.
	SweepInterval time.Duration

	// OnEvict, when set, is called after each capacity eviction with the
	// evicted key. It runs outside shard locks and must not call back into
	// the cache.
	OnEvict func(Key)
}

// InMemoryCache is a concurrent, bounded store with per-entry TTL and strict
// least-recently-used eviction.
//
// The key space is partitioned across shards so concurrent Get/Set traffic
// does not serialize on one lock. Recency markers come from a single atomic
// sequence, so the eviction victim - the entry with the globally oldest
// marker - is found by comparing shard LRU tails; marker uniqueness makes
// insertion order the tiebreak by construction. Eviction runs synchronously
// on the Set that overflows the bound.
type InMemoryCache struct {
	shards []*shard

	maxEntries   int
	maxValueSize int
	onEvict      func(Key)

	count atomic.Int64  // entries across all shards
	size  atomic.Int64  // value bytes across all shards
	seq   atomic.Uint64 // recency sequence

	hits      atomic.Uint64
	misses    atomic.Uint64
	sets      atomic.Uint64
	deletes   atomic.Uint64
	evictions atomic.Uint64
	errs      atomic.Uint64

	sweepStop chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recent
}

// entry is the stored value plus bookkeeping. Owned exclusively by the shard
// that holds it.
type entry struct {
	key        Key
	value      []byte
	insertedAt time.Time
	expiresAt  time.Time
	size       int
	recency    uint64
	elem       *list.Element
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.After(now)
}

// NewInMemory creates an InMemoryCache. Close must be called to stop the
// background sweep when SweepInterval is set.
func NewInMemory(cfg MemoryConfig) *InMemoryCache {
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = DefaultMaxValueSize
	}
	if cfg.ShardCount <= 0 {
		cfg.ShardCount = DefaultShardCount
	}

	c := &InMemoryCache{
		shards:       make([]*shard, cfg.ShardCount),
		maxEntries:   cfg.MaxEntries,
		maxValueSize: cfg.MaxValueSize,
		onEvict:      cfg.OnEvict,
	}
	for i := range c.shards {
		c.shards[i] = &shard{
			entries: make(map[string]*entry),
			lru:     list.New(),
		}
	}

	if cfg.SweepInterval > 0 {
		c.sweepStop = make(chan struct{})
		c.sweepDone = make(chan struct{})
		go c.sweepLoop(cfg.SweepInterval)
	}

	return c
}

func (c *InMemoryCache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the value if present and unexpired, refreshing recency.
// Expired entries are reclaimed on this access.
func (c *InMemoryCache) Get(_ context.Context, key Key) ([]byte, bool) {
	if key.Validate() != nil {
		c.misses.Add(1)
		return nil, false
	}

	ks := key.String()
	s := c.shardFor(ks)

	s.mu.Lock()
	e, ok := s.entries[ks]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	if e.expired(time.Now()) {
		c.removeLocked(s, e)
		s.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	e.recency = c.seq.Add(1)
	s.lru.MoveToFront(e.elem)
	value := e.value
	s.mu.Unlock()

	c.hits.Add(1)
	return value, true
}

// Set stores value with expiry now+ttl. Values larger than MaxValueSize and
// non-positive TTLs are not stored and return (false, nil); size accounting
// is untouched by a rejection. Overwrites replace the prior entry's value,
// expiry, and recency.
func (c *InMemoryCache) Set(_ context.Context, key Key, value []byte, ttl time.Duration) (bool, error) {
	if err := key.Validate(); err != nil {
		c.errs.Add(1)
		return false, err
	}
	if ttl <= 0 {
		return false, nil
	}
	if len(value) > c.maxValueSize {
		return false, nil
	}

	now := time.Now()
	ks := key.String()
	s := c.shardFor(ks)

	s.mu.Lock()
	if prev, ok := s.entries[ks]; ok {
		c.size.Add(int64(len(value) - prev.size))
		prev.value = value
		prev.size = len(value)
		prev.insertedAt = now
		prev.expiresAt = now.Add(ttl)
		prev.recency = c.seq.Add(1)
		s.lru.MoveToFront(prev.elem)
		s.mu.Unlock()
		c.sets.Add(1)
		return true, nil
	}

	e := &entry{
		key:        key,
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
		size:       len(value),
		recency:    c.seq.Add(1),
	}
	e.elem = s.lru.PushFront(e)
	s.entries[ks] = e
	s.mu.Unlock()

	c.count.Add(1)
	c.size.Add(int64(e.size))
	c.sets.Add(1)

	if c.maxEntries > 0 {
		for c.count.Load() > int64(c.maxEntries) {
			if !c.evictOldest() {
				break
			}
		}
	}

	return true, nil
}

// evictOldest removes the entry with the globally oldest recency marker.
// It compares shard tails under their own locks, then re-resolves the victim
// shard's tail before removing, so at most one shard lock is held at a time.
// Returns false only when there is nothing left to evict.
func (c *InMemoryCache) evictOldest() bool {
	for {
		victim := -1
		var oldest uint64

		for i, s := range c.shards {
			s.mu.Lock()
			if back := s.lru.Back(); back != nil {
				e := back.Value.(*entry)
				if victim == -1 || e.recency < oldest {
					victim = i
					oldest = e.recency
				}
			}
			s.mu.Unlock()
		}
		if victim == -1 {
			return false
		}

		s := c.shards[victim]
		s.mu.Lock()
		back := s.lru.Back()
		if back == nil {
			// Emptied while unlocked; rescan.
			s.mu.Unlock()
			continue
		}
		e := back.Value.(*entry)
		c.removeLocked(s, e)
		s.mu.Unlock()

		c.evictions.Add(1)
		if c.onEvict != nil {
			c.onEvict(e.key)
		}
		return true
	}
}

// removeLocked unlinks e from s. Caller holds s.mu.
func (c *InMemoryCache) removeLocked(s *shard, e *entry) {
	delete(s.entries, e.key.String())
	s.lru.Remove(e.elem)
	c.count.Add(-1)
	c.size.Add(-int64(e.size))
}

// Delete removes the entry if present. Idempotent.
func (c *InMemoryCache) Delete(_ context.Context, key Key) error {
	ks := key.String()
	s := c.shardFor(ks)

	s.mu.Lock()
	e, ok := s.entries[ks]
	if ok {
		c.removeLocked(s, e)
	}
	s.mu.Unlock()

	if ok {
		c.deletes.Add(1)
	}
	return nil
}

// Exists reports presence without refreshing recency. Expired entries are
// reclaimed on this access.
func (c *InMemoryCache) Exists(_ context.Context, key Key) bool {
	ks := key.String()
	s := c.shardFor(ks)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ks]
	if !ok {
		return false
	}
	if e.expired(time.Now()) {
		c.removeLocked(s, e)
		return false
	}
	return true
}

// DeleteByPrefix removes every entry whose canonical key starts with prefix.
func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, ErrInvalidKey
	}

	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for ks, e := range s.entries {
			if strings.HasPrefix(ks, prefix) {
				c.removeLocked(s, e)
				removed++
			}
		}
		s.mu.Unlock()
	}

	c.deletes.Add(uint64(removed))
	return removed, nil
}

// Metadata returns entry bookkeeping without the value or a recency refresh.
func (c *InMemoryCache) Metadata(_ context.Context, key Key) (Metadata, bool) {
	ks := key.String()
	s := c.shardFor(ks)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ks]
	if !ok {
		return Metadata{}, false
	}
	now := time.Now()
	if e.expired(now) {
		c.removeLocked(s, e)
		return Metadata{}, false
	}
	return Metadata{
		InsertedAt:   e.insertedAt,
		ExpiresAt:    e.expiresAt,
		SizeBytes:    e.size,
		TTLRemaining: e.expiresAt.Sub(now),
	}, true
}

// Clear removes all entries. Counters other than the entry and size gauges
// are unaffected.
func (c *InMemoryCache) Clear(_ context.Context) error {
	for _, s := range c.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			c.count.Add(-1)
			c.size.Add(-int64(e.size))
		}
		s.entries = make(map[string]*entry)
		s.lru.Init()
		s.mu.Unlock()
	}
	return nil
}

// HealthCheck always reports true for an in-process store.
func (c *InMemoryCache) HealthCheck(_ context.Context) bool {
	return true
}

// Stats returns a snapshot of the counters.
func (c *InMemoryCache) Stats(_ context.Context) Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Sets:       c.sets.Load(),
		Deletes:    c.deletes.Load(),
		Evictions:  c.evictions.Load(),
		Errors:     c.errs.Load(),
		EntryCount: c.count.Load(),
		SizeBytes:  c.size.Load(),
	}
}

// ResetStats zeroes the monotonic counters. The entry and size gauges track
// live contents and are left alone.
func (c *InMemoryCache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	c.deletes.Store(0)
	c.evictions.Store(0)
	c.errs.Store(0)
}

// Close stops the background sweep, if any. Safe to call more than once.
func (c *InMemoryCache) Close() error {
	c.closeOnce.Do(func() {
		if c.sweepStop != nil {
			close(c.sweepStop)
			<-c.sweepDone
		}
	})
	return nil
}

func (c *InMemoryCache) sweepLoop(interval time.Duration) {
	defer close(c.sweepDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep(time.Now())
		case <-c.sweepStop:
			return
		}
	}
}

// sweep reclaims expired entries so memory is not held by entries nobody
// reads again. Sweep removals are neither misses nor evictions.
func (c *InMemoryCache) sweep(now time.Time) {
	for _, s := range c.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			if e.expired(now) {
				c.removeLocked(s, e)
			}
		}
		s.mu.Unlock()
	}
}

var (
	_ Provider      = (*InMemoryCache)(nil)
	_ StatsResetter = (*InMemoryCache)(nil)
)
