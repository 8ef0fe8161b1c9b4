// Package query executes catalog lookups and bounded read-only SQL against
// the backing database.
//
// The Guard functions classify statements before they reach the database:
// write operations are rejected, identifiers are validated against catalog
// injection, and Cacheable decides whether a statement's results may be
// stored. The Executor is the fetch side of every cached-or-fetch call; it
// reads its row limit and timeout from the active runtime snapshot on each
// call, so reloads apply to in-flight traffic without a restart.
package query
