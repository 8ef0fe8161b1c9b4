// Package auth verifies caller identity and resolves the tenant that scopes
// every cache key and catalog query.
//
// It supports JWT bearer tokens (static HMAC secret or JWKS), a static
// shared-token mode for single-tenant deployments, and API keys for the admin
// listener. The TenantResolver maps a verified tenant claim to a database
// schema; authorizers confine each identity to its resolved schema. The
// package is transport-agnostic apart from the http middleware helpers.
package auth
