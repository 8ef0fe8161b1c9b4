package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/jonwraymond/querygate/auth"
	"github.com/jonwraymond/querygate/cache"
	"github.com/jonwraymond/querygate/observe"
)

// Config is everything read at startup. Server, Database, Auth, Cache sizing,
// and Observability are fixed for the process lifetime; the Runtime section
// is re-read on every reload.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Runtime       RuntimeConfig       `mapstructure:"runtime"`
}

// ServerConfig sizes the HTTP listeners. The admin listener carries health,
// metrics, and the reload endpoint, separate from tool traffic.
type ServerConfig struct {
	ListenAddress string        `mapstructure:"listen_address"`
	AdminAddress  string        `mapstructure:"admin_address"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig describes the backing database connection.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	DefaultSchema   string        `mapstructure:"default_schema"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig is the cache section in file units.
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Backend       string        `mapstructure:"backend"`
	MaxEntries    int           `mapstructure:"max_entries"`
	MaxValueSize  int           `mapstructure:"max_value_size"`
	ShardCount    int           `mapstructure:"shard_count"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Provider converts the section into the cache package's configuration.
func (c CacheConfig) Provider() cache.Config {
	return cache.Config{
		Enabled:       c.Enabled,
		Backend:       cache.ParseBackend(c.Backend),
		MaxEntries:    c.MaxEntries,
		MaxValueSize:  c.MaxValueSize,
		ShardCount:    c.ShardCount,
		SweepInterval: c.SweepInterval,
	}
}

// AuthConfig configures caller verification and tenant resolution.
// Disabled means every request runs as the fixed system tenant.
//
// With auth enabled the mode follows the configured key material: a JWKS URL
// or HMAC secret selects JWT verification; a bearer token alone selects the
// shared-token gate (no claims, so no tenant isolation).
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// BearerToken is the shared token for single-tenant deployments.
	BearerToken string `mapstructure:"bearer_token"`

	// JWT verification.
	Issuer       string        `mapstructure:"issuer"`
	Audience     string        `mapstructure:"audience"`
	JWKSURL      string        `mapstructure:"jwks_url"`
	JWKSCacheTTL time.Duration `mapstructure:"jwks_cache_ttl"`
	HMACSecret   string        `mapstructure:"hmac_secret"`
	ClockSkew    time.Duration `mapstructure:"clock_skew"`

	// Claim names in verified tokens.
	TenantClaim string `mapstructure:"tenant_claim"`
	RolesClaim  string `mapstructure:"roles_claim"`

	// Tenant-to-schema mapping.
	TenantIsolation bool              `mapstructure:"tenant_isolation"`
	TenantStrategy  string            `mapstructure:"tenant_strategy"`
	SchemaPrefix    string            `mapstructure:"schema_prefix"`
	SchemaSuffix    string            `mapstructure:"schema_suffix"`
	SchemaLookup    map[string]string `mapstructure:"schema_lookup"`
	DefaultSchema   string            `mapstructure:"default_schema"`

	// Role gates. Empty ReadRole admits every verified caller; AdminRole
	// bypasses schema confinement.
	ReadRole  string `mapstructure:"read_role"`
	AdminRole string `mapstructure:"admin_role"`

	// AdminAPIKey gates the admin listener (reload, detailed health).
	// Empty leaves the admin listener open.
	AdminAPIKey string `mapstructure:"admin_api_key"`
}

// UsesJWT reports whether a JWT key source is configured.
func (a AuthConfig) UsesJWT() bool {
	return a.JWKSURL != "" || a.HMACSecret != ""
}

// JWT converts the section into the auth package's JWT configuration.
func (a AuthConfig) JWT() auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:      a.Issuer,
		Audience:    a.Audience,
		ClockSkew:   a.ClockSkew,
		TenantClaim: a.TenantClaim,
		RolesClaim:  a.RolesClaim,
	}
}

// JWKS converts the section into the JWKS key provider configuration.
func (a AuthConfig) JWKS() auth.JWKSConfig {
	return auth.JWKSConfig{
		URL:      a.JWKSURL,
		CacheTTL: a.JWKSCacheTTL,
	}
}

// Bearer converts the section into the shared-token configuration.
func (a AuthConfig) Bearer() auth.StaticBearerConfig {
	return auth.StaticBearerConfig{Token: a.BearerToken}
}

// Tenant converts the section into tenant resolution configuration.
// Isolation requires JWT mode because only verified claims carry a tenant.
func (a AuthConfig) Tenant() auth.TenantConfig {
	return auth.TenantConfig{
		Enabled:       a.Enabled && a.TenantIsolation && a.UsesJWT(),
		Strategy:      auth.ParseMappingStrategy(a.TenantStrategy),
		Prefix:        a.SchemaPrefix,
		Suffix:        a.SchemaSuffix,
		Lookup:        a.SchemaLookup,
		DefaultSchema: a.DefaultSchema,
	}
}

// ObservabilityConfig configures tracing and metrics provider setup.
type ObservabilityConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Version     string        `mapstructure:"version"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// Observe converts the section into the observe package's configuration.
// Logging is always on; the level comes from the Runtime section so reloads
// can change it.
func (o ObservabilityConfig) Observe(logLevel string) observe.Config {
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   logLevel,
		},
	}
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Exporter  string  `mapstructure:"exporter"`
	SamplePct float64 `mapstructure:"sample_pct"`
}

// MetricsConfig selects the metrics exporter.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// RuntimeConfig is the hot-reloadable section in file units, with the log
// level as text. Snapshot converts it to an immutable Runtime.
type RuntimeConfig struct {
	RowLimit       uint32        `mapstructure:"row_limit"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	LogLevel       string        `mapstructure:"log_level"`
	CacheTTLSchema time.Duration `mapstructure:"cache_ttl_schema"`
	CacheTTLQuery  time.Duration `mapstructure:"cache_ttl_query"`
}

// Snapshot builds and validates the Runtime this section describes.
func (s RuntimeConfig) Snapshot() (*Runtime, error) {
	level, err := zapcore.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: log_level %q: %w", s.LogLevel, err)
	}
	rt := &Runtime{
		RowLimit:       s.RowLimit,
		QueryTimeout:   s.QueryTimeout,
		LogLevel:       level,
		CacheTTLSchema: s.CacheTTLSchema,
		CacheTTLQuery:  s.CacheTTLQuery,
	}
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	return rt, nil
}

// Validate checks the static sections. The Runtime section is validated
// separately by Snapshot so that reloads report their own failures.
func (c *Config) Validate() error {
	if c.Server.ListenAddress == "" {
		return errors.New("config: server.listen_address is required")
	}
	if c.Server.AdminAddress == "" {
		return errors.New("config: server.admin_address is required")
	}
	if c.Database.Driver == "" {
		return errors.New("config: database.driver is required")
	}
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}
	if c.Auth.Enabled {
		if c.Auth.BearerToken == "" && !c.Auth.UsesJWT() {
			return errors.New("config: auth enabled but none of bearer_token, jwks_url, hmac_secret is set")
		}
	}
	return nil
}
