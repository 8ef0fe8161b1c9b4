// Package cache provides tenant-isolated caching for database-query tools.
//
// It defines the Provider contract with in-memory, no-op, and traced
// implementations, namespace- and tenant-scoped key construction, and the
// CachedOrFetch orchestration used by every tool handler. Cache failures
// degrade to fetching from source; they never fail a request.
package cache
