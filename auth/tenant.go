package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jonwraymond/querygate/cache"
)

// MappingStrategy selects how a tenant ID becomes a database schema name.
type MappingStrategy string

const (
	// MappingDirect uses the tenant ID itself, uppercased.
	MappingDirect MappingStrategy = "direct"
	// MappingPrefix produces PREFIX_TENANT.
	MappingPrefix MappingStrategy = "prefix"
	// MappingSuffix produces TENANT_SUFFIX.
	MappingSuffix MappingStrategy = "suffix"
	// MappingLookup consults a static table, then the lookup function,
	// falling back to the direct mapping for unmapped tenants.
	MappingLookup MappingStrategy = "lookup"
)

// ParseMappingStrategy maps a config string to a strategy.
// Unrecognized values fall back to the direct mapping.
func ParseMappingStrategy(s string) MappingStrategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(MappingPrefix):
		return MappingPrefix
	case string(MappingSuffix):
		return MappingSuffix
	case string(MappingLookup):
		return MappingLookup
	default:
		return MappingDirect
	}
}

// Default sizing for the lookup cache.
const (
	DefaultLookupCacheSize = 1024
	DefaultLookupCacheTTL  = 5 * time.Minute
)

// TenantConfig configures tenant resolution.
type TenantConfig struct {
	// Enabled turns tenant isolation on. Disabled deployments run every
	// request as the fixed system tenant with no schema confinement.
	Enabled bool

	// Strategy selects the schema mapping.
	Strategy MappingStrategy

	// Prefix is prepended for MappingPrefix.
	Prefix string

	// Suffix is appended for MappingSuffix.
	Suffix string

	// Lookup is the static tenant-to-schema table for MappingLookup.
	// Mapped values are used verbatim.
	Lookup map[string]string

	// LookupFunc resolves tenants missing from the static table, typically
	// against a control-plane store. Results are cached. Optional.
	LookupFunc func(ctx context.Context, tenantID string) (string, error)

	// DefaultSchema stands in for a missing tenant claim. Empty means a
	// missing claim is rejected with ErrMissingTenantClaim.
	DefaultSchema string

	// LookupCacheSize bounds the LookupFunc result cache.
	// Default: 1024
	LookupCacheSize int

	// LookupCacheTTL bounds staleness of cached LookupFunc results.
	// Default: 5 minutes
	LookupCacheTTL time.Duration
}

// Resolution is the outcome of tenant resolution: the tenant that scopes
// cache keys and the schema that scopes catalog and query execution.
type Resolution struct {
	// TenantID is never empty; unauthenticated deployments get the system
	// tenant.
	TenantID string

	// Schema is the resolved database schema. Empty means the caller is
	// not confined to one schema.
	Schema string
}

// TenantResolver maps verified identities to their tenant and schema.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Resolve returns ErrMissingTenantClaim when isolation is on,
//   the identity carries no tenant, and no default schema is configured;
//   LookupFunc failures are returned wrapped.
type TenantResolver struct {
	config  TenantConfig
	lookups *expirable.LRU[string, string]
}

// NewTenantResolver creates a tenant resolver.
func NewTenantResolver(config TenantConfig) *TenantResolver {
	if config.LookupCacheSize <= 0 {
		config.LookupCacheSize = DefaultLookupCacheSize
	}
	if config.LookupCacheTTL <= 0 {
		config.LookupCacheTTL = DefaultLookupCacheTTL
	}

	r := &TenantResolver{config: config}
	if config.LookupFunc != nil {
		r.lookups = expirable.NewLRU[string, string](config.LookupCacheSize, nil, config.LookupCacheTTL)
	}
	return r
}

// Resolve determines the tenant and schema for an identity. A nil identity
// is valid when isolation is disabled and resolves to the system tenant.
func (r *TenantResolver) Resolve(ctx context.Context, id *Identity) (Resolution, error) {
	if !r.config.Enabled {
		return Resolution{TenantID: cache.SystemTenant}, nil
	}

	tenantID := ""
	if id != nil {
		tenantID = id.TenantID
	}
	if tenantID == "" {
		if r.config.DefaultSchema == "" {
			return Resolution{}, ErrMissingTenantClaim
		}
		// The fallback value goes through the same mapping a claimed
		// tenant would.
		tenantID = r.config.DefaultSchema
	}

	schema, err := r.mapSchema(ctx, tenantID)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{TenantID: tenantID, Schema: schema}, nil
}

func (r *TenantResolver) mapSchema(ctx context.Context, tenantID string) (string, error) {
	switch r.config.Strategy {
	case MappingPrefix:
		return strings.ToUpper(r.config.Prefix + "_" + tenantID), nil
	case MappingSuffix:
		return strings.ToUpper(tenantID + "_" + r.config.Suffix), nil
	case MappingLookup:
		if schema, ok := r.config.Lookup[tenantID]; ok {
			return schema, nil
		}
		if r.config.LookupFunc != nil {
			if schema, ok := r.lookups.Get(tenantID); ok {
				return schema, nil
			}
			schema, err := r.config.LookupFunc(ctx, tenantID)
			if err != nil {
				return "", fmt.Errorf("auth: tenant lookup %q: %w", tenantID, err)
			}
			if schema != "" {
				r.lookups.Add(tenantID, schema)
				return schema, nil
			}
		}
		return strings.ToUpper(tenantID), nil
	default:
		return strings.ToUpper(tenantID), nil
	}
}
