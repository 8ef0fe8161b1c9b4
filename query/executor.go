package query

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"go.uber.org/zap"

	"github.com/jonwraymond/querygate/config"
	"github.com/jonwraymond/querygate/resilience"
)

// StatusOK is the ping status on a healthy connection.
const StatusOK = "ok"

const (
	// defaultMaxConcurrent bounds in-flight database calls when the pool
	// itself is unbounded.
	defaultMaxConcurrent = 32

	// slotWait is how long a call may queue for an execution slot before
	// it fails with ErrBulkheadFull instead of piling onto a slow database.
	slotWait = 250 * time.Millisecond

	// retryDelay seeds the backoff before a transient error is retried.
	retryDelay = 50 * time.Millisecond
)

// Executor runs catalog lookups and bounded SELECTs against the backing
// database. Every call is admitted through a bulkhead sized to the pool,
// guarded by the circuit breaker, retried once across transient connection
// faults, and cut off at the timeout read from the active runtime snapshot,
// so a reloaded query_timeout applies to the next call without
// reconstruction.
//
// Contract:
//   - Methods never mutate database state; callers gate writes out with
//     ValidateReadOnly before ExecuteQuery. Every operation is a read, which
//     is what makes the retry safe.
//   - Schema and object names are compared case-folded, the same fold the
//     cache keys use, so one object has one cache entry.
//   - A missing object is ErrNotFound, not a database fault; it does not
//     count against the circuit breaker.
type Executor struct {
	db       *sqlx.DB
	holder   *config.Holder
	breaker  *resilience.CircuitBreaker
	policies *resilience.Executor
	logger   *zap.Logger
}

// Open connects to the configured database and applies pool limits. The
// caller owns the handle and closes it on shutdown.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("query: open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// NewExecutor wires a database handle to the runtime snapshot holder. The
// logger may be nil.
func NewExecutor(db *sqlx.DB, holder *config.Holder, logger *zap.Logger) (*Executor, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if holder == nil {
		return nil, ErrNilHolder
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		OnStateChange: func(from, to resilience.State) {
			logger.Warn("database circuit state changed",
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
		IsFailure: func(err error) bool {
			// A cancelled caller or a missing catalog object is not a
			// database fault.
			return err != nil &&
				!errors.Is(err, context.Canceled) &&
				!errors.Is(err, ErrNotFound)
		},
	})

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: retryDelay,
		RetryIf:      isTransient,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn("retrying database call",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(err))
		},
	})

	maxConcurrent := db.Stats().MaxOpenConnections
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	bulkhead := resilience.NewBulkhead(resilience.BulkheadConfig{
		MaxConcurrent: maxConcurrent,
		MaxWait:       slotWait,
	})

	policies := resilience.NewExecutor(
		resilience.WithBulkhead(bulkhead),
		resilience.WithCircuitBreaker(breaker),
		resilience.WithRetry(retry),
	)

	return &Executor{db: db, holder: holder, breaker: breaker, policies: policies, logger: logger}, nil
}

// isTransient reports whether an error is worth one more attempt on a fresh
// connection: the pool gave up on a bad conn, or the network dropped
// mid-call. Slow statements (ErrTimeout) and missing objects are not
// transient.
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// BreakerState reports the circuit breaker's current state.
func (e *Executor) BreakerState() resilience.State {
	return e.breaker.State()
}

// run executes op through the policy chain. The timeout sits innermost and
// is re-read per call, so each retry attempt gets the full budget and a
// reloaded snapshot takes effect immediately.
func (e *Executor) run(ctx context.Context, op func(context.Context) error) error {
	timeout := e.holder.Load().QueryTimeout
	return e.policies.Execute(ctx, func(ctx context.Context) error {
		return resilience.ExecuteWithTimeout(ctx, timeout, op)
	})
}

// Ping verifies connectivity and measures one round trip.
func (e *Executor) Ping(ctx context.Context) (PingResult, error) {
	start := time.Now()
	err := e.run(ctx, func(ctx context.Context) error {
		var one int
		return e.db.GetContext(ctx, &one, pingSQL)
	})
	if err != nil {
		return PingResult{}, fmt.Errorf("query: ping: %w", err)
	}
	return PingResult{Status: StatusOK, LatencyMS: time.Since(start).Milliseconds()}, nil
}

// ListTables returns the tables and views in schema, sorted by name.
func (e *Executor) ListTables(ctx context.Context, schema string) ([]TableInfo, error) {
	var rows []tableRow
	err := e.run(ctx, func(ctx context.Context) error {
		return e.db.SelectContext(ctx, &rows, listTablesSQL, strings.ToUpper(schema))
	})
	if err != nil {
		return nil, fmt.Errorf("query: list tables in %s: %w", schema, err)
	}

	tables := make([]TableInfo, len(rows))
	for i, r := range rows {
		tables[i] = TableInfo{Name: r.Name, Type: normalizeTableType(r.Type)}
	}
	return tables, nil
}

// DescribeTable returns the column layout of schema.table.
func (e *Executor) DescribeTable(ctx context.Context, schema, table string) (TableSchema, error) {
	var rows []columnRow
	err := e.run(ctx, func(ctx context.Context) error {
		return e.db.SelectContext(ctx, &rows, describeTableSQL,
			strings.ToUpper(schema), strings.ToUpper(table))
	})
	if err != nil {
		return TableSchema{}, fmt.Errorf("query: describe table %s.%s: %w", schema, table, err)
	}
	if len(rows) == 0 {
		return TableSchema{}, fmt.Errorf("%w: table %s.%s", ErrNotFound, schema, table)
	}

	cols := make([]ColumnInfo, len(rows))
	for i, r := range rows {
		cols[i] = ColumnInfo{
			Name:     r.Name,
			DataType: r.DataType,
			Nullable: strings.EqualFold(r.Nullable, "YES"),
		}
	}
	return TableSchema{TableName: strings.ToUpper(table), Columns: cols}, nil
}

// ListProcedures returns the procedures and functions in schema, sorted by
// name. ReadOnly reflects what the catalog knows: deterministic routines
// are reported read-only.
func (e *Executor) ListProcedures(ctx context.Context, schema string) ([]ProcedureInfo, error) {
	var rows []procedureRow
	err := e.run(ctx, func(ctx context.Context) error {
		return e.db.SelectContext(ctx, &rows, listProceduresSQL, strings.ToUpper(schema))
	})
	if err != nil {
		return nil, fmt.Errorf("query: list procedures in %s: %w", schema, err)
	}

	procs := make([]ProcedureInfo, len(rows))
	for i, r := range rows {
		procs[i] = ProcedureInfo{
			Name:     r.Name,
			Schema:   strings.ToUpper(schema),
			Type:     r.Type,
			ReadOnly: strings.EqualFold(r.Deterministic, "YES"),
		}
	}
	return procs, nil
}

// DescribeProcedure returns the parameter signature of schema.procedure.
// Overloaded routines share one name; their parameters are reported as one
// list ordered by position.
func (e *Executor) DescribeProcedure(ctx context.Context, schema, procedure string) (ProcedureSchema, error) {
	su, pu := strings.ToUpper(schema), strings.ToUpper(procedure)

	var params []parameterRow
	err := e.run(ctx, func(ctx context.Context) error {
		var names []string
		if err := e.db.SelectContext(ctx, &names, describeProcedureSQL, su, pu); err != nil {
			return err
		}
		if len(names) == 0 {
			return fmt.Errorf("%w: procedure %s.%s", ErrNotFound, schema, procedure)
		}
		return e.db.SelectContext(ctx, &params, procedureParametersSQL, su, pu)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProcedureSchema{}, err
		}
		return ProcedureSchema{}, fmt.Errorf("query: describe procedure %s.%s: %w", schema, procedure, err)
	}

	out := make([]ProcedureParameter, 0, len(params))
	for _, r := range params {
		p := ProcedureParameter{
			Position:   r.Position,
			DataType:   r.DataType,
			Direction:  ParseParameterDirection(r.Mode),
			Length:     r.Length,
			Precision:  r.Precision,
			Scale:      r.Scale,
			HasDefault: r.HasDefault,
		}
		if r.Name != nil {
			p.Name = *r.Name
		}
		out = append(out, p)
	}
	return ProcedureSchema{Name: pu, Schema: su, Parameters: out}, nil
}

// ExecuteQuery runs one statement and returns at most limit rows. A zero or
// oversized limit is capped to the snapshot's RowLimit; Truncated reports
// whether the cap cut the result short. The statement must already have
// passed ValidateReadOnly.
func (e *Executor) ExecuteQuery(ctx context.Context, stmt string, limit uint32) (ResultSet, error) {
	ceiling := e.holder.Load().RowLimit
	if limit == 0 || limit > ceiling {
		limit = ceiling
	}

	var rs ResultSet
	err := e.run(ctx, func(ctx context.Context) error {
		rows, err := e.db.QueryxContext(ctx, stmt)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		rs.Columns = cols
		rs.Rows = make([][]any, 0)

		for rows.Next() {
			if uint32(len(rs.Rows)) >= limit {
				rs.Truncated = true
				break
			}
			vals, err := rows.SliceScan()
			if err != nil {
				return err
			}
			rs.Rows = append(rs.Rows, normalizeRow(vals))
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rs.RowCount = len(rs.Rows)
		return nil
	})
	if err != nil {
		return ResultSet{}, fmt.Errorf("query: execute: %w", err)
	}
	return rs, nil
}

func normalizeTableType(t string) string {
	if strings.EqualFold(t, "BASE TABLE") {
		return "TABLE"
	}
	return t
}

// normalizeRow converts driver values to JSON-encodable ones. Byte slices
// become strings so text columns do not cache as base64.
func normalizeRow(vals []any) []any {
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			vals[i] = string(b)
		}
	}
	return vals
}
