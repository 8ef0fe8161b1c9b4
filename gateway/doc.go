// Package gateway assembles the database tools behind tenant-scoped caching.
//
// Gateway exposes the six operations — ping, list_tables, describe_table,
// list_procedures, describe_procedure, and execute_sql — each resolving the
// caller's tenant and schema, validating its inputs, and going through the
// cache before the executor. Router serves the operations over HTTP with
// authentication; AdminRouter carries health, metrics, cache administration,
// and the configuration reload endpoint on a separate listener.
package gateway
