package cache

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// Backend selects the store implementation.
type Backend string

const (
	BackendNoop   Backend = "noop"
	BackendMemory Backend = "memory"
)

// ParseBackend maps a configuration string to a Backend. "memory" and "mem"
// select the in-memory store; anything else falls back to the no-op store.
func ParseBackend(s string) Backend {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory", "mem":
		return BackendMemory
	default:
		return BackendNoop
	}
}

// Config selects and sizes the provider built by New.
type Config struct {
	// Enabled gates caching for the whole deployment. Disabled means the
	// no-op provider regardless of Backend.
	Enabled bool

	// Backend selects the store when enabled.
	Backend Backend

	// MaxEntries, MaxValueSize, ShardCount, and SweepInterval size the
	// in-memory store; zero values take the package defaults.
	MaxEntries    int
	MaxValueSize  int
	ShardCount    int
	SweepInterval time.Duration
}

// DefaultConfig returns the deployment defaults: caching off, in-memory
// backend sized to the package defaults, five-minute sweep.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		Backend:       BackendMemory,
		MaxEntries:    DefaultMaxEntries,
		MaxValueSize:  DefaultMaxValueSize,
		ShardCount:    DefaultShardCount,
		SweepInterval: 5 * time.Minute,
	}
}

// New builds the provider for a deployment: the no-op store when disabled,
// otherwise the traced in-memory store. The concrete provider is selected
// once at startup and never switched at runtime. Callers should Close the
// returned provider at shutdown when it is an io.Closer.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	if !cfg.Enabled || cfg.Backend != BackendMemory {
		return NewNoop(), nil
	}

	// The eviction hook is wired through a closure so the traced wrapper can
	// report evictions that happen inside the store.
	var traced *TracedCache
	mem := NewInMemory(MemoryConfig{
		MaxEntries:    cfg.MaxEntries,
		MaxValueSize:  cfg.MaxValueSize,
		ShardCount:    cfg.ShardCount,
		SweepInterval: cfg.SweepInterval,
		OnEvict: func(key Key) {
			if traced != nil {
				traced.recordEviction(key)
			}
		},
	})

	traced, err := NewTraced(mem, logger)
	if err != nil {
		_ = mem.Close()
		return nil, err
	}
	return traced, nil
}
