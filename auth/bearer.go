package auth

import (
	"context"
	"strings"
)

// StaticBearerConfig configures the shared-token authenticator.
type StaticBearerConfig struct {
	// Token is the expected bearer token. Required.
	Token string

	// Principal is the identity assigned on success.
	// Default: "service"
	Principal string

	// HeaderName is the header containing the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the prefix before the token in the header.
	// Default: "Bearer "
	TokenPrefix string
}

// StaticBearerAuthenticator compares a bearer token against a single
// configured value. It carries no claims, so callers run as the system
// tenant; it exists for single-tenant deployments that want a gate without
// an identity provider.
type StaticBearerAuthenticator struct {
	config StaticBearerConfig
}

// NewStaticBearerAuthenticator creates a shared-token authenticator.
func NewStaticBearerAuthenticator(config StaticBearerConfig) *StaticBearerAuthenticator {
	if config.Principal == "" {
		config.Principal = "service"
	}
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	return &StaticBearerAuthenticator{config: config}
}

// Name returns "bearer".
func (a *StaticBearerAuthenticator) Name() string {
	return "bearer"
}

// Supports returns true if the request carries a bearer token.
func (a *StaticBearerAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return strings.HasPrefix(req.GetHeader(a.config.HeaderName), a.config.TokenPrefix)
}

// Authenticate compares the presented token in constant time.
func (a *StaticBearerAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*AuthResult, error) {
	header := req.GetHeader(a.config.HeaderName)
	if header == "" {
		return AuthFailure(ErrMissingCredentials, "bearer"), nil
	}

	token := strings.TrimPrefix(header, a.config.TokenPrefix)
	if token == header {
		return AuthFailure(ErrMissingCredentials, "bearer"), nil
	}

	if !ConstantTimeCompare(strings.TrimSpace(token), a.config.Token) {
		return AuthFailure(ErrInvalidCredentials, "bearer"), nil
	}

	return AuthSuccess(&Identity{
		Principal: a.config.Principal,
		Method:    AuthMethodBearer,
		Claims:    make(map[string]any),
	}), nil
}

// Ensure StaticBearerAuthenticator implements Authenticator
var _ Authenticator = (*StaticBearerAuthenticator)(nil)
