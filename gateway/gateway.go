package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonwraymond/querygate/auth"
	"github.com/jonwraymond/querygate/cache"
	"github.com/jonwraymond/querygate/config"
	"github.com/jonwraymond/querygate/observe"
	"github.com/jonwraymond/querygate/query"
)

// Execer is the fetch side of the gateway: the subset of query.Executor the
// tool operations call when the cache cannot answer.
type Execer interface {
	Ping(ctx context.Context) (query.PingResult, error)
	ListTables(ctx context.Context, schema string) ([]query.TableInfo, error)
	DescribeTable(ctx context.Context, schema, table string) (query.TableSchema, error)
	ListProcedures(ctx context.Context, schema string) ([]query.ProcedureInfo, error)
	DescribeProcedure(ctx context.Context, schema, procedure string) (query.ProcedureSchema, error)
	ExecuteQuery(ctx context.Context, stmt string, limit uint32) (query.ResultSet, error)
}

var _ Execer = (*query.Executor)(nil)

// Options wires a Gateway. Executor and Holder are required; everything else
// has a working zero value: nil Cache fetches on every call, nil Authorizer
// admits everyone, nil Middleware skips telemetry, nil Logger is silent.
type Options struct {
	Executor      Execer
	Holder        *config.Holder
	Cache         cache.Provider
	Filter        query.SchemaFilter
	Authorizer    auth.Authorizer
	Middleware    *observe.Middleware
	Logger        *zap.Logger
	DefaultSchema string

	// RateLimit throttles tool calls per tenant on the HTTP router. The
	// zero value leaves the router unthrottled.
	RateLimit RateLimitConfig
}

// Gateway executes the database tools with tenant-scoped caching.
//
// Contract:
//   - Every operation resolves its tenant from the request identity and
//     falls back to the system tenant, so cache keys never cross tenants.
//   - The cache is consulted before the executor and populated best-effort
//     after it; a cache fault never fails an operation.
//   - Ping never touches the cache. Catalog operations cache at the schema
//     TTL; execute_sql caches at the query TTL and only for a single plain
//     SELECT.
type Gateway struct {
	exec          Execer
	holder        *config.Holder
	cache         cache.Provider
	filter        query.SchemaFilter
	authz         auth.Authorizer
	mw            *observe.Middleware
	logger        *zap.Logger
	defaultSchema string
	rateLimit     RateLimitConfig
}

// New validates the options and builds a Gateway.
func New(opts Options) (*Gateway, error) {
	if opts.Executor == nil {
		return nil, ErrNilExecutor
	}
	if opts.Holder == nil {
		return nil, ErrNilHolder
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	authz := opts.Authorizer
	if authz == nil {
		authz = auth.AllowAllAuthorizer{}
	}

	return &Gateway{
		exec:          opts.Executor,
		holder:        opts.Holder,
		cache:         opts.Cache,
		filter:        opts.Filter,
		authz:         authz,
		mw:            opts.Middleware,
		logger:        logger,
		defaultSchema: opts.DefaultSchema,
		rateLimit:     opts.RateLimit,
	}, nil
}

// Ping reports database connectivity and latency. It is the one operation
// that never consults the cache: its whole point is a live round trip.
func (g *Gateway) Ping(ctx context.Context) (query.PingResult, error) {
	res, err := g.invoke(ctx, g.meta(ctx, "ping", "", ""),
		func(ctx context.Context, _ observe.OpMeta) (any, error) {
			return g.exec.Ping(ctx)
		})
	if err != nil {
		return query.PingResult{}, err
	}
	return res.(query.PingResult), nil
}

// ListTables returns the tables in the schema in scope. The listing is
// cached per tenant and schema at the snapshot's schema TTL.
func (g *Gateway) ListTables(ctx context.Context, p ListTablesParams) ([]query.TableInfo, bool, error) {
	if err := p.Validate(); err != nil {
		return nil, false, err
	}
	tenant, schema, err := g.scope(ctx, p.Schema)
	if err != nil {
		return nil, false, err
	}

	key := cache.SchemaListKey(tenant, schema)
	var hit bool
	res, err := g.invoke(ctx, g.meta(ctx, "list_tables", schema, ""),
		func(ctx context.Context, _ observe.OpMeta) (any, error) {
			tables, fromCache, err := cache.CachedOrFetch(ctx, g.cache, key, g.ttlFor(key), g.logger,
				func(ctx context.Context) ([]query.TableInfo, error) {
					return g.exec.ListTables(ctx, schema)
				})
			hit = fromCache
			return tables, err
		})
	if err != nil {
		return nil, false, err
	}
	return res.([]query.TableInfo), hit, nil
}

// DescribeTable returns the column layout of one table, cached per tenant,
// schema, and table at the schema TTL.
func (g *Gateway) DescribeTable(ctx context.Context, p DescribeTableParams) (query.TableSchema, bool, error) {
	if err := p.Validate(); err != nil {
		return query.TableSchema{}, false, err
	}
	tenant, schema, err := g.scope(ctx, p.Schema)
	if err != nil {
		return query.TableSchema{}, false, err
	}

	key := cache.TableDescribeKey(tenant, schema, p.Table)
	var hit bool
	res, err := g.invoke(ctx, g.meta(ctx, "describe_table", schema, p.Table),
		func(ctx context.Context, _ observe.OpMeta) (any, error) {
			ts, fromCache, err := cache.CachedOrFetch(ctx, g.cache, key, g.ttlFor(key), g.logger,
				func(ctx context.Context) (query.TableSchema, error) {
					return g.exec.DescribeTable(ctx, schema, p.Table)
				})
			hit = fromCache
			return ts, err
		})
	if err != nil {
		return query.TableSchema{}, false, err
	}
	return res.(query.TableSchema), hit, nil
}

// ListProcedures returns the procedures and functions in the schema in
// scope, cached per tenant and schema at the schema TTL.
func (g *Gateway) ListProcedures(ctx context.Context, p ListProceduresParams) ([]query.ProcedureInfo, bool, error) {
	if err := p.Validate(); err != nil {
		return nil, false, err
	}
	tenant, schema, err := g.scope(ctx, p.Schema)
	if err != nil {
		return nil, false, err
	}

	key := cache.ProcedureListKey(tenant, schema)
	var hit bool
	res, err := g.invoke(ctx, g.meta(ctx, "list_procedures", schema, ""),
		func(ctx context.Context, _ observe.OpMeta) (any, error) {
			procs, fromCache, err := cache.CachedOrFetch(ctx, g.cache, key, g.ttlFor(key), g.logger,
				func(ctx context.Context) ([]query.ProcedureInfo, error) {
					return g.exec.ListProcedures(ctx, schema)
				})
			hit = fromCache
			return procs, err
		})
	if err != nil {
		return nil, false, err
	}
	return res.([]query.ProcedureInfo), hit, nil
}

// DescribeProcedure returns the parameter signature of one procedure,
// cached per tenant, schema, and procedure at the schema TTL.
func (g *Gateway) DescribeProcedure(ctx context.Context, p DescribeProcedureParams) (query.ProcedureSchema, bool, error) {
	if err := p.Validate(); err != nil {
		return query.ProcedureSchema{}, false, err
	}
	tenant, schema, err := g.scope(ctx, p.Schema)
	if err != nil {
		return query.ProcedureSchema{}, false, err
	}

	key := cache.ProcedureDescribeKey(tenant, schema, p.Procedure)
	var hit bool
	res, err := g.invoke(ctx, g.meta(ctx, "describe_procedure", schema, p.Procedure),
		func(ctx context.Context, _ observe.OpMeta) (any, error) {
			ps, fromCache, err := cache.CachedOrFetch(ctx, g.cache, key, g.ttlFor(key), g.logger,
				func(ctx context.Context) (query.ProcedureSchema, error) {
					return g.exec.DescribeProcedure(ctx, schema, p.Procedure)
				})
			hit = fromCache
			return ps, err
		})
	if err != nil {
		return query.ProcedureSchema{}, false, err
	}
	return res.(query.ProcedureSchema), hit, nil
}

// ExecuteSQL runs one read-only statement with the snapshot's row cap.
// Results are cached at the query TTL, and only when the statement is a
// single plain SELECT; EXPLAIN and multi-statement batches execute uncached.
// Schema confinement cannot be applied to raw SQL, so only the role gate
// runs here; the database connection's own grants are the backstop.
func (g *Gateway) ExecuteSQL(ctx context.Context, p ExecuteSQLParams) (query.ResultSet, bool, error) {
	if err := p.Validate(); err != nil {
		return query.ResultSet{}, false, err
	}
	if err := query.ValidateReadOnly(p.SQL); err != nil {
		return query.ResultSet{}, false, err
	}
	if err := g.authorize(ctx, ""); err != nil {
		return query.ResultSet{}, false, err
	}

	rt := g.holder.Load()
	limit := p.Limit
	if limit == 0 || limit > rt.RowLimit {
		limit = rt.RowLimit
	}

	// Only cache what Cacheable approves; everything else goes straight to
	// the executor through the same path, with no provider.
	provider := g.cache
	if !query.Cacheable(p.SQL) {
		provider = nil
	}

	key := cache.QueryResultKey(g.tenant(ctx), p.SQL, limit)
	var hit bool
	res, err := g.invoke(ctx, g.meta(ctx, "execute_sql", "", ""),
		func(ctx context.Context, _ observe.OpMeta) (any, error) {
			rs, fromCache, err := cache.CachedOrFetch(ctx, provider, key, rt.CacheTTLQuery, g.logger,
				func(ctx context.Context) (query.ResultSet, error) {
					return g.exec.ExecuteQuery(ctx, p.SQL, limit)
				})
			hit = fromCache
			return rs, err
		})
	if err != nil {
		return query.ResultSet{}, false, err
	}
	return res.(query.ResultSet), hit, nil
}

// invoke runs fn through the telemetry middleware when one is wired.
func (g *Gateway) invoke(ctx context.Context, op observe.OpMeta, fn observe.InvokeFunc) (any, error) {
	if g.mw != nil {
		return g.mw.Wrap(fn)(ctx, op)
	}
	return fn(ctx, op)
}

// meta builds the telemetry metadata for one invocation.
func (g *Gateway) meta(ctx context.Context, op, schema, object string) observe.OpMeta {
	inv := InvocationIDFromContext(ctx)
	if inv == "" {
		inv = uuid.NewString()
	}
	return observe.OpMeta{
		Op:         op,
		Tenant:     g.tenant(ctx),
		Invocation: inv,
		Schema:     schema,
		Object:     object,
	}
}

// tenant resolves the cache tenant for the caller. No identity, or an
// identity without a tenant, runs as the system tenant.
func (g *Gateway) tenant(ctx context.Context) string {
	if t := auth.TenantIDFromContext(ctx); t != "" {
		return t
	}
	return cache.SystemTenant
}

// scope resolves the tenant and target schema for a catalog operation: the
// request's schema if given, else the caller's resolved schema, else the
// configured default. The result is identifier-checked, passed through the
// schema filter, and authorized before use.
func (g *Gateway) scope(ctx context.Context, requested string) (tenant, schema string, err error) {
	id := auth.IdentityFromContext(ctx)
	tenant = cache.SystemTenant
	if id != nil && id.TenantID != "" {
		tenant = id.TenantID
	}

	schema = requested
	if schema == "" && id != nil {
		schema = id.Schema
	}
	if schema == "" {
		schema = g.defaultSchema
	}
	if schema == "" {
		return "", "", ErrNoSchema
	}

	if err := query.ValidateIdentifier(schema, "schema"); err != nil {
		return "", "", err
	}
	if err := g.filter.Validate(schema); err != nil {
		return "", "", err
	}
	if err := g.authorize(ctx, schema); err != nil {
		return "", "", err
	}
	return tenant, schema, nil
}

// authorize runs the configured authorizer for a read against schema.
func (g *Gateway) authorize(ctx context.Context, schema string) error {
	subject := auth.IdentityFromContext(ctx)
	if subject == nil {
		subject = auth.AnonymousIdentity()
	}
	return g.authz.Authorize(ctx, &auth.AuthzRequest{
		Subject: subject,
		Schema:  schema,
		Action:  "read",
	})
}

// ttlFor reads the namespace TTL from the active snapshot.
func (g *Gateway) ttlFor(key cache.Key) time.Duration {
	return g.holder.Load().TTLFor(key.Namespace)
}
