package config

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonwraymond/querygate/cache"
)

// Defaults for the hot-reloadable settings.
const (
	DefaultRowLimit     uint32        = 10000
	DefaultQueryTimeout time.Duration = 30 * time.Second
	DefaultSchemaTTL    time.Duration = time.Hour
	DefaultQueryTTL     time.Duration = 60 * time.Second
)

// ErrNilRuntime is returned when a nil snapshot is offered to a Holder.
var ErrNilRuntime = errors.New("config: nil runtime snapshot")

// Runtime is the hot-reloadable slice of the configuration. A Runtime is
// immutable once constructed: a reload builds a brand-new snapshot and swaps
// it in whole. It deliberately carries no secrets, so reload diffs are safe
// to log.
type Runtime struct {
	// RowLimit caps the rows returned by a single query.
	RowLimit uint32

	// QueryTimeout bounds one database round-trip.
	QueryTimeout time.Duration

	// LogLevel is applied to the process logger on each reload.
	LogLevel zapcore.Level

	// CacheTTLSchema is the lifetime of cached catalog metadata.
	CacheTTLSchema time.Duration

	// CacheTTLQuery is the lifetime of cached query results.
	CacheTTLQuery time.Duration
}

// DefaultRuntime returns the snapshot used when no overrides are configured.
func DefaultRuntime() *Runtime {
	return &Runtime{
		RowLimit:       DefaultRowLimit,
		QueryTimeout:   DefaultQueryTimeout,
		LogLevel:       zapcore.InfoLevel,
		CacheTTLSchema: DefaultSchemaTTL,
		CacheTTLQuery:  DefaultQueryTTL,
	}
}

// Validate rejects snapshots that could not serve requests. A snapshot that
// fails validation is never swapped in.
func (r *Runtime) Validate() error {
	if r.RowLimit == 0 {
		return errors.New("config: row_limit must be positive")
	}
	if r.QueryTimeout <= 0 {
		return errors.New("config: query_timeout must be positive")
	}
	if r.CacheTTLSchema <= 0 {
		return errors.New("config: cache_ttl_schema must be positive")
	}
	if r.CacheTTLQuery <= 0 {
		return errors.New("config: cache_ttl_query must be positive")
	}
	return nil
}

// TTLFor maps a cache namespace to its lifetime in this snapshot. Catalog
// metadata namespaces share the schema TTL; query results and anything
// unrecognized get the shorter query TTL.
func (r *Runtime) TTLFor(ns cache.Namespace) time.Duration {
	switch ns {
	case cache.NamespaceSchemaList, cache.NamespaceTableDescribe,
		cache.NamespaceProcedureList, cache.NamespaceProcedureDescribe:
		return r.CacheTTLSchema
	default:
		return r.CacheTTLQuery
	}
}

// diff lists the fields that differ between two snapshots with their old and
// new values. Runtime holds no secrets, so values appear verbatim.
func diff(prev, next *Runtime) []string {
	var changed []string
	if prev.RowLimit != next.RowLimit {
		changed = append(changed, fmt.Sprintf("row_limit: %d -> %d", prev.RowLimit, next.RowLimit))
	}
	if prev.QueryTimeout != next.QueryTimeout {
		changed = append(changed, fmt.Sprintf("query_timeout: %s -> %s", prev.QueryTimeout, next.QueryTimeout))
	}
	if prev.LogLevel != next.LogLevel {
		changed = append(changed, fmt.Sprintf("log_level: %s -> %s", prev.LogLevel, next.LogLevel))
	}
	if prev.CacheTTLSchema != next.CacheTTLSchema {
		changed = append(changed, fmt.Sprintf("cache_ttl_schema: %s -> %s", prev.CacheTTLSchema, next.CacheTTLSchema))
	}
	if prev.CacheTTLQuery != next.CacheTTLQuery {
		changed = append(changed, fmt.Sprintf("cache_ttl_query: %s -> %s", prev.CacheTTLQuery, next.CacheTTLQuery))
	}
	return changed
}

// Trigger identifies what initiated a reload, for audit logging.
type Trigger struct {
	source string
	detail string
}

// TriggerSignal marks a reload initiated by SIGHUP.
var TriggerSignal = Trigger{source: "SIGHUP"}

// TriggerManual marks a programmatic reload.
var TriggerManual = Trigger{source: "manual"}

// TriggerHTTP marks a reload initiated through the admin endpoint.
func TriggerHTTP(remoteAddr string) Trigger {
	return Trigger{source: "HTTP /admin/reload", detail: remoteAddr}
}

func (t Trigger) String() string {
	switch {
	case t.source == "":
		return "manual"
	case t.detail == "":
		return t.source
	default:
		return t.source + " from " + t.detail
	}
}

// ReloadResult reports one reload attempt.
type ReloadResult struct {
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Changed []string  `json:"changed,omitempty"`
	Trigger string    `json:"trigger"`
	At      time.Time `json:"at"`
}

// Holder owns the single active Runtime snapshot.
//
// Contract:
//   - Load is wait-free and never blocks on a concurrent reload.
//   - Reload validates before swapping; a rejected snapshot leaves the
//     active one in force and the rejection is reported to the trigger.
//   - The swap is all-or-nothing: no reader ever observes fields from two
//     different snapshots.
//   - Readers keep whatever snapshot they loaded; only a fresh Load
//     observes a newer one.
type Holder struct {
	current atomic.Pointer[Runtime]
	logger  *zap.Logger

	mu       sync.Mutex // serializes reloads
	level    zap.AtomicLevel
	hasLevel bool
}

// NewHolder seeds a holder with its initial snapshot. The logger may be nil.
func NewHolder(initial *Runtime, logger *zap.Logger) (*Holder, error) {
	if initial == nil {
		return nil, ErrNilRuntime
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Holder{logger: logger}
	h.current.Store(initial)
	return h, nil
}

// BindLogLevel ties a zap level to the snapshot's LogLevel. The level is
// applied immediately and again after each successful reload.
func (h *Holder) BindLogLevel(level zap.AtomicLevel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
	h.hasLevel = true
	level.SetLevel(h.current.Load().LogLevel)
}

// Load returns the active snapshot.
func (h *Holder) Load() *Runtime {
	return h.current.Load()
}

// Reload validates next and swaps it in atomically. Concurrent reloads are
// serialized; readers are never blocked.
func (h *Holder) Reload(next *Runtime, trigger Trigger) ReloadResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	at := time.Now().UTC()
	if next == nil {
		return h.reject(ErrNilRuntime, trigger, at)
	}
	if err := next.Validate(); err != nil {
		return h.reject(err, trigger, at)
	}

	prev := h.current.Load()
	changed := diff(prev, next)
	h.current.Store(next)
	if h.hasLevel {
		h.level.SetLevel(next.LogLevel)
	}

	h.logger.Info("runtime configuration reloaded",
		zap.Stringer("trigger", trigger),
		zap.Strings("changed", changed))

	return ReloadResult{
		Success: true,
		Changed: changed,
		Trigger: trigger.String(),
		At:      at,
	}
}

func (h *Holder) reject(err error, trigger Trigger, at time.Time) ReloadResult {
	h.logger.Warn("runtime configuration reload rejected",
		zap.Stringer("trigger", trigger),
		zap.Error(err))
	return ReloadResult{
		Success: false,
		Error:   err.Error(),
		Trigger: trigger.String(),
		At:      at,
	}
}
