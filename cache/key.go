package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Namespace identifies a category of cached data. Each namespace carries its
// own TTL policy and can be invalidated in bulk with DeleteByPrefix.
type Namespace string

const (
	// NamespaceSchemaList caches table listings for a schema.
	NamespaceSchemaList Namespace = "tbl_list"

	// NamespaceTableDescribe caches column metadata for a single table.
	NamespaceTableDescribe Namespace = "tbl_schema"

	// NamespaceProcedureList caches procedure listings for a schema.
	NamespaceProcedureList Namespace = "proc_list"

	// NamespaceProcedureDescribe caches parameter metadata for a single procedure.
	NamespaceProcedureDescribe Namespace = "proc_schema"

	// NamespaceQueryResult caches bounded query results.
	NamespaceQueryResult Namespace = "query"

	// NamespaceCustom is for caller-defined entries.
	NamespaceCustom Namespace = "custom"
)

// SystemTenant is the tenant identifier used when the deployment runs without
// authentication. Keys never carry an empty tenant.
const SystemTenant = "system"

// Prefix returns the canonical key prefix covering every tenant's entries in
// this namespace.
func (n Namespace) Prefix() string {
	return string(n) + ":"
}

// TenantPrefix returns the canonical key prefix covering a single tenant's
// entries in this namespace.
func (n Namespace) TenantPrefix(tenant string) string {
	return string(n) + ":" + tenant + ":"
}

// Key identifies a cache entry. Two keys are equal iff namespace, tenant, and
// discriminator are all equal; the tenant is a mandatory component, so
// logically identical requests from distinct tenants never collide.
//
// Keys are comparable values; construct them with the New*Key functions,
// which canonicalize discriminators.
type Key struct {
	Namespace     Namespace
	Tenant        string
	Discriminator string
}

// String returns the canonical representation, namespace first so a whole
// namespace can be invalidated with a string prefix.
func (k Key) String() string {
	return string(k.Namespace) + ":" + k.Tenant + ":" + k.Discriminator
}

// Validate reports whether the key is usable by a provider.
func (k Key) Validate() error {
	if k.Tenant == "" {
		return ErrMissingTenant
	}
	if k.Namespace == "" {
		return ErrInvalidKey
	}
	return ValidateKeyString(k.String())
}

// SchemaListKey keys the table listing of a schema.
func SchemaListKey(tenant, schema string) Key {
	return Key{
		Namespace:     NamespaceSchemaList,
		Tenant:        tenant,
		Discriminator: foldIdent(schema),
	}
}

// TableDescribeKey keys the description of a single table.
func TableDescribeKey(tenant, schema, table string) Key {
	return Key{
		Namespace:     NamespaceTableDescribe,
		Tenant:        tenant,
		Discriminator: foldIdent(schema) + ":" + foldIdent(table),
	}
}

// ProcedureListKey keys the procedure listing of a schema.
func ProcedureListKey(tenant, schema string) Key {
	return Key{
		Namespace:     NamespaceProcedureList,
		Tenant:        tenant,
		Discriminator: foldIdent(schema),
	}
}

// ProcedureDescribeKey keys the description of a single procedure.
func ProcedureDescribeKey(tenant, schema, procedure string) Key {
	return Key{
		Namespace:     NamespaceProcedureDescribe,
		Tenant:        tenant,
		Discriminator: foldIdent(schema) + ":" + foldIdent(procedure),
	}
}

// QueryResultKey keys the result of a bounded query. The discriminator
// combines a SHA-256 digest of the statement text with its length and the row
// limit, so near-duplicate long statements and different limits never share
// an entry without storing the full text in the key.
func QueryResultKey(tenant, sql string, rowLimit uint32) Key {
	sum := sha256.Sum256([]byte(sql))
	return Key{
		Namespace: NamespaceQueryResult,
		Tenant:    tenant,
		Discriminator: hex.EncodeToString(sum[:8]) + ":" +
			strconv.Itoa(len(sql)) + ":" +
			strconv.FormatUint(uint64(rowLimit), 10),
	}
}

// CustomKey keys a caller-defined entry. Parts are joined verbatim.
func CustomKey(tenant string, parts ...string) Key {
	return Key{
		Namespace:     NamespaceCustom,
		Tenant:        tenant,
		Discriminator: strings.Join(parts, ":"),
	}
}

// foldIdent canonicalizes an unquoted identifier the way the backing catalog
// folds them, so differently-cased spellings of one object share an entry.
func foldIdent(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
