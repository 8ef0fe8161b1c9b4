package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/querygate/cache"
	"github.com/jonwraymond/querygate/secret"
)

// envPrefix scopes environment overrides: runtime.row_limit becomes
// QUERYGATE_RUNTIME_ROW_LIMIT.
const envPrefix = "QUERYGATE"

// secretKeys are the values that may carry ${VAR} references or
// secretref:<provider>:<ref> values. Resolution is strict: a missing
// variable or an empty secret fails the load instead of producing a
// half-formed DSN.
var secretKeys = []string{
	"database.dsn",
	"server.listen_address",
	"server.admin_address",
	"auth.jwks_url",
	"auth.hmac_secret",
	"auth.bearer_token",
	"auth.admin_api_key",
}

// Load reads the configuration from a YAML file, environment overrides, and
// defaults, in ascending precedence of default < file < environment.
//
// path may be empty; QUERYGATE_CONFIG_FILE is consulted next, and with no
// file at all the configuration comes from defaults and environment only.
// A file that is named but unreadable is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG_FILE")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := expandSecretRefs(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_address", ":8080")
	v.SetDefault("server.admin_address", ":9090")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 2*time.Minute)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.default_schema", "public")
	v.SetDefault("database.max_open_conns", 16)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", cache.DefaultMaxEntries)
	v.SetDefault("cache.max_value_size", cache.DefaultMaxValueSize)
	v.SetDefault("cache.shard_count", cache.DefaultShardCount)
	v.SetDefault("cache.sweep_interval", 5*time.Minute)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwks_cache_ttl", time.Hour)
	v.SetDefault("auth.clock_skew", time.Minute)
	v.SetDefault("auth.tenant_claim", "tenant_id")
	v.SetDefault("auth.roles_claim", "roles")
	v.SetDefault("auth.tenant_isolation", false)
	v.SetDefault("auth.tenant_strategy", "direct")

	v.SetDefault("observability.service_name", "querygate")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.exporter", "stdout")
	v.SetDefault("observability.tracing.sample_pct", 1.0)
	v.SetDefault("observability.metrics.enabled", false)
	v.SetDefault("observability.metrics.exporter", "prometheus")

	v.SetDefault("runtime.row_limit", DefaultRowLimit)
	v.SetDefault("runtime.query_timeout", DefaultQueryTimeout)
	v.SetDefault("runtime.log_level", "info")
	v.SetDefault("runtime.cache_ttl_schema", DefaultSchemaTTL)
	v.SetDefault("runtime.cache_ttl_query", DefaultQueryTTL)
}

func expandSecretRefs(v *viper.Viper) error {
	resolver := secret.NewResolver(true)
	for _, name := range secret.DefaultRegistry.List() {
		p, err := secret.DefaultRegistry.Create(name, map[string]any{
			"root": v.GetString("secrets.file_root"),
		})
		if err != nil {
			return fmt.Errorf("config: secret provider %s: %w", name, err)
		}
		resolver.Register(p)
	}
	ctx := context.Background()

	for _, key := range secretKeys {
		raw := v.GetString(key)
		// Values without references pass through untouched; a bare "$"
		// in a DSN password must not be treated as an expansion.
		if raw == "" || !(strings.Contains(raw, "${") || strings.Contains(raw, "secretref:")) {
			continue
		}
		resolved, err := resolver.ResolveValue(ctx, raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		v.Set(key, resolved)
	}
	return nil
}

// Reloader re-reads the configuration source and offers the fresh Runtime
// snapshot to a Holder. One Reloader serves all trigger sources; a load or
// validation failure is reported to the trigger and leaves the active
// snapshot in force.
type Reloader struct {
	holder *Holder
	path   string
}

// NewReloader builds a Reloader bound to the same path Load was given.
func NewReloader(holder *Holder, path string) (*Reloader, error) {
	if holder == nil {
		return nil, errors.New("config: nil holder")
	}
	return &Reloader{holder: holder, path: path}, nil
}

// Reload is a ReloadFunc.
func (r *Reloader) Reload(trigger Trigger) ReloadResult {
	cfg, err := Load(r.path)
	if err != nil {
		return r.holder.reject(err, trigger, time.Now().UTC())
	}
	next, err := cfg.Runtime.Snapshot()
	if err != nil {
		return r.holder.reject(err, trigger, time.Now().UTC())
	}
	return r.holder.Reload(next, trigger)
}
