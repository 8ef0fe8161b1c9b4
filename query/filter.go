package query

import (
	"fmt"
	"strings"
)

// filterMode selects how a SchemaFilter treats schema names.
type filterMode int

const (
	filterAllowAll filterMode = iota
	filterAllowlist
	filterDenylist
)

// SchemaFilter restricts which database schemas the gateway will touch,
// independent of per-tenant confinement. The zero value allows every schema.
// Matching is case-insensitive.
type SchemaFilter struct {
	mode    filterMode
	schemas map[string]bool
}

// NewSchemaFilter builds a filter from configuration strings. mode is one of
// "allowlist"/"allow", "denylist"/"deny", or "none"/"all"/"" for no
// filtering. An allowlist must name at least one schema.
func NewSchemaFilter(mode string, schemas []string) (SchemaFilter, error) {
	set := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		set[strings.ToUpper(strings.TrimSpace(s))] = true
	}

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "allowlist", "allow", "whitelist":
		if len(set) == 0 {
			return SchemaFilter{}, fmt.Errorf("query: allowlist schema filter requires at least one schema")
		}
		return SchemaFilter{mode: filterAllowlist, schemas: set}, nil
	case "denylist", "deny", "blacklist":
		return SchemaFilter{mode: filterDenylist, schemas: set}, nil
	case "none", "all", "":
		return SchemaFilter{}, nil
	default:
		return SchemaFilter{}, fmt.Errorf("query: invalid schema filter mode %q", mode)
	}
}

// Allowed reports whether access to schema is permitted.
func (f SchemaFilter) Allowed(schema string) bool {
	upper := strings.ToUpper(schema)
	switch f.mode {
	case filterAllowlist:
		return f.schemas[upper]
	case filterDenylist:
		return !f.schemas[upper]
	default:
		return true
	}
}

// Validate returns ErrSchemaDenied when access to schema is not permitted.
func (f SchemaFilter) Validate(schema string) error {
	if f.Allowed(schema) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSchemaDenied, schema)
}
