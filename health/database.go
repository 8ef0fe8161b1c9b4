package health

import (
	"context"
	"fmt"
	"time"
)

// Pinger is the slice of a database handle the checker needs. *sql.DB and
// *sqlx.DB both satisfy it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DatabaseCheckerConfig tunes the database probe.
type DatabaseCheckerConfig struct {
	// Timeout bounds one ping. Default: 2s.
	Timeout time.Duration

	// DegradedAfter grades a slow-but-successful ping as degraded.
	// Default: 500ms.
	DegradedAfter time.Duration
}

// DatabaseChecker probes database reachability with a ping and grades the
// round-trip latency.
type DatabaseChecker struct {
	db     Pinger
	config DatabaseCheckerConfig
}

// NewDatabaseChecker builds a database checker over db.
func NewDatabaseChecker(db Pinger, config ...DatabaseCheckerConfig) *DatabaseChecker {
	cfg := DatabaseCheckerConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.DegradedAfter <= 0 {
		cfg.DegradedAfter = 500 * time.Millisecond
	}
	return &DatabaseChecker{db: db, config: cfg}
}

func (c *DatabaseChecker) Name() string { return "database" }

// Check pings the database once.
func (c *DatabaseChecker) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	details := map[string]any{
		"latency_ms": latency.Milliseconds(),
	}

	if err != nil {
		return Unhealthy("database unreachable", err).
			WithDetails(details).WithDuration(latency)
	}
	if latency >= c.config.DegradedAfter {
		return Degraded(fmt.Sprintf("ping slow: %s", latency)).
			WithDetails(details).WithDuration(latency)
	}
	return Healthy("database reachable").
		WithDetails(details).WithDuration(latency)
}
