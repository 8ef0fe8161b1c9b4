package auth

import (
	"encoding/json"
	"net/http"
)

// WithAuthHeaders is HTTP middleware that extracts request headers
// into the context for use by authentication middleware.
//
// Usage:
//
//	mux.Handle("/query", auth.WithAuthHeaders(queryHandler))
func WithAuthHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithHeaders(r.Context(), r.Header)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Middleware returns HTTP middleware that authenticates the request and
// resolves its tenant before the next handler runs. The identity, with
// tenant and schema filled in, is attached to the request context.
//
// A nil authenticator makes the middleware a passthrough for disabled-auth
// deployments: no identity is attached and downstream code falls back to
// the system tenant.
func Middleware(authn Authenticator, resolver *TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authn == nil {
				next.ServeHTTP(w, r)
				return
			}

			req := &AuthRequest{Headers: r.Header}
			if !authn.Supports(r.Context(), req) {
				writeAuthError(w, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}

			result, err := authn.Authenticate(r.Context(), req)
			if err != nil {
				// Internal failure, details stay out of the response.
				writeAuthError(w, http.StatusInternalServerError, nil)
				return
			}
			if !result.Authenticated {
				writeAuthError(w, http.StatusUnauthorized, result.Error)
				return
			}

			identity := result.Identity
			if resolver != nil {
				res, err := resolver.Resolve(r.Context(), identity)
				if err != nil {
					writeAuthError(w, http.StatusUnauthorized, err)
					return
				}
				identity.TenantID = res.TenantID
				identity.Schema = res.Schema
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	msg := "authentication failed"
	if err != nil {
		msg = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
