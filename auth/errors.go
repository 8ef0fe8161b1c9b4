package auth

import "errors"

// Sentinel errors for authentication, tenant resolution, and authorization.
var (
	// Authentication errors
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrKeyNotFound        = errors.New("auth: signing key not found")

	// ErrMissingTenantClaim is returned when tenant isolation is enabled,
	// the token carries no tenant claim, and no default schema is configured.
	ErrMissingTenantClaim = errors.New("auth: tenant claim missing")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")
)
