package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// keyProviderFunc adapts a function to the KeyProvider interface for tests.
type keyProviderFunc func(ctx context.Context, keyID string) (any, error)

func (f keyProviderFunc) GetKey(ctx context.Context, keyID string) (any, error) {
	return f(ctx, keyID)
}

func signHS256(t testing.TB, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestNewJWTAuthenticator_Defaults(t *testing.T) {
	auth := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider([]byte("secret")))

	if auth.Name() != "jwt" {
		t.Errorf("Name() = %v, want jwt", auth.Name())
	}
	if auth.config.TenantClaim != DefaultTenantClaim {
		t.Errorf("TenantClaim = %v, want %v", auth.config.TenantClaim, DefaultTenantClaim)
	}
	if auth.config.RolesClaim != DefaultRolesClaim {
		t.Errorf("RolesClaim = %v, want %v", auth.config.RolesClaim, DefaultRolesClaim)
	}
	if auth.config.ClockSkew != DefaultClockSkew {
		t.Errorf("ClockSkew = %v, want %v", auth.config.ClockSkew, DefaultClockSkew)
	}
}

func TestJWTAuthenticator_Supports(t *testing.T) {
	auth := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider([]byte("secret")))

	tests := []struct {
		name    string
		headers map[string][]string
		want    bool
	}{
		{
			name:    "no authorization header",
			headers: map[string][]string{},
			want:    false,
		},
		{
			name:    "bearer token",
			headers: map[string][]string{"Authorization": {"Bearer token123"}},
			want:    true,
		},
		{
			name:    "custom header without bearer prefix",
			headers: map[string][]string{"X-Custom": {"token123"}},
			want:    false,
		},
		{
			name:    "wrong prefix",
			headers: map[string][]string{"Authorization": {"Basic abc123"}},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &AuthRequest{Headers: tt.headers}
			if got := auth.Supports(context.Background(), req); got != tt.want {
				t.Errorf("Supports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	secret := []byte("test-secret-key-at-least-32-bytes")
	config := JWTConfig{
		Issuer:   "test-issuer",
		Audience: "test-audience",
	}
	auth := NewJWTAuthenticator(config, NewStaticKeyProvider(secret))
	ctx := context.Background()

	bearerReq := func(token string) *AuthRequest {
		return &AuthRequest{
			Headers: map[string][]string{"Authorization": {"Bearer " + token}},
		}
	}

	t.Run("valid token", func(t *testing.T) {
		token := signHS256(t, secret, jwt.MapClaims{
			"sub":       "user123",
			"iss":       "test-issuer",
			"aud":       "test-audience",
			"exp":       time.Now().Add(time.Hour).Unix(),
			"iat":       time.Now().Unix(),
			"roles":     []any{"analyst", "tenant_admin"},
			"tenant_id": "acme",
		})

		result, err := auth.Authenticate(ctx, bearerReq(token))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if !result.Authenticated {
			t.Fatalf("Authenticated = false, want true: %v", result.Error)
		}
		if result.Identity.Principal != "user123" {
			t.Errorf("Principal = %v, want user123", result.Identity.Principal)
		}
		if result.Identity.TenantID != "acme" {
			t.Errorf("TenantID = %v, want acme", result.Identity.TenantID)
		}
		if len(result.Identity.Roles) != 2 {
			t.Errorf("Roles = %v, want [analyst tenant_admin]", result.Identity.Roles)
		}
		if result.Identity.ExpiresAt.IsZero() {
			t.Error("ExpiresAt should be set from exp claim")
		}
		if result.Identity.Method != AuthMethodJWT {
			t.Errorf("Method = %v, want jwt", result.Identity.Method)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token := signHS256(t, secret, jwt.MapClaims{
			"sub": "user123",
			"iss": "test-issuer",
			"aud": "test-audience",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		result, err := auth.Authenticate(ctx, bearerReq(token))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated {
			t.Error("Authenticated = true for expired token")
		}
		if !errors.Is(result.Error, ErrTokenExpired) {
			t.Errorf("Error = %v, want ErrTokenExpired", result.Error)
		}
	})

	t.Run("expiry within clock skew passes", func(t *testing.T) {
		// Default skew is one minute; 30 seconds past exp is tolerated.
		token := signHS256(t, secret, jwt.MapClaims{
			"sub": "user123",
			"iss": "test-issuer",
			"aud": "test-audience",
			"exp": time.Now().Add(-30 * time.Second).Unix(),
		})

		result, err := auth.Authenticate(ctx, bearerReq(token))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if !result.Authenticated {
			t.Errorf("Authenticated = false within leeway: %v", result.Error)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token := signHS256(t, secret, jwt.MapClaims{
			"sub": "user123",
			"iss": "wrong-issuer",
			"aud": "test-audience",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		result, err := auth.Authenticate(ctx, bearerReq(token))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated {
			t.Error("Authenticated = true for wrong issuer")
		}
		if !errors.Is(result.Error, ErrInvalidCredentials) {
			t.Errorf("Error = %v, want ErrInvalidCredentials", result.Error)
		}
	})

	t.Run("wrong audience", func(t *testing.T) {
		token := signHS256(t, secret, jwt.MapClaims{
			"sub": "user123",
			"iss": "test-issuer",
			"aud": "other-api",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		result, err := auth.Authenticate(ctx, bearerReq(token))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated {
			t.Error("Authenticated = true for wrong audience")
		}
	})

	t.Run("missing exp claim rejected", func(t *testing.T) {
		token := signHS256(t, secret, jwt.MapClaims{
			"sub": "user123",
			"iss": "test-issuer",
			"aud": "test-audience",
		})

		result, err := auth.Authenticate(ctx, bearerReq(token))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated {
			t.Error("Authenticated = true for token without exp")
		}
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := signHS256(t, []byte("some-other-secret-with-32-bytes!"), jwt.MapClaims{
			"sub": "user123",
			"iss": "test-issuer",
			"aud": "test-audience",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		result, err := auth.Authenticate(ctx, bearerReq(token))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated {
			t.Error("Authenticated = true for wrong signing key")
		}
		if !errors.Is(result.Error, ErrInvalidCredentials) {
			t.Errorf("Error = %v, want ErrInvalidCredentials", result.Error)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		result, err := auth.Authenticate(ctx, &AuthRequest{Headers: map[string][]string{}})
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated {
			t.Error("Authenticated = true for missing token")
		}
		if !errors.Is(result.Error, ErrMissingCredentials) {
			t.Errorf("Error = %v, want ErrMissingCredentials", result.Error)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		result, err := auth.Authenticate(ctx, bearerReq("not.a.token"))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated {
			t.Error("Authenticated = true for garbage token")
		}
		if !errors.Is(result.Error, ErrTokenMalformed) {
			t.Errorf("Error = %v, want ErrTokenMalformed", result.Error)
		}
	})
}

func TestJWTAuthenticator_RestrictedMethods(t *testing.T) {
	secret := []byte("test-secret-key-at-least-32-bytes")
	auth := NewJWTAuthenticator(JWTConfig{
		ValidMethods: []string{"RS256"},
	}, NewStaticKeyProvider(secret))

	token := signHS256(t, secret, jwt.MapClaims{
		"sub": "user123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	result, err := auth.Authenticate(context.Background(), &AuthRequest{
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
	})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if result.Authenticated {
		t.Error("Authenticated = true for disallowed signing method")
	}
}

func TestJWTAuthenticator_CustomClaims(t *testing.T) {
	secret := []byte("test-secret-key-at-least-32-bytes")
	auth := NewJWTAuthenticator(JWTConfig{
		PrincipalClaim: "email",
		TenantClaim:    "org",
	}, NewStaticKeyProvider(secret))

	token := signHS256(t, secret, jwt.MapClaims{
		"sub":   "user123",
		"email": "alice@example.com",
		"org":   "globex",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	result, err := auth.Authenticate(context.Background(), &AuthRequest{
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
	})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Authenticated {
		t.Fatalf("Authenticated = false: %v", result.Error)
	}
	if result.Identity.Principal != "alice@example.com" {
		t.Errorf("Principal = %v, want alice@example.com", result.Identity.Principal)
	}
	if result.Identity.TenantID != "globex" {
		t.Errorf("TenantID = %v, want globex", result.Identity.TenantID)
	}
}

func TestJWTAuthenticator_KeyProviderFailure(t *testing.T) {
	provider := keyProviderFunc(func(_ context.Context, _ string) (any, error) {
		return nil, errors.New("jwks endpoint unreachable")
	})
	auth := NewJWTAuthenticator(JWTConfig{}, provider)

	token := signHS256(t, []byte("secret"), jwt.MapClaims{
		"sub": "user123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := auth.Authenticate(context.Background(), &AuthRequest{
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
	})
	if err == nil {
		t.Fatal("Authenticate() should surface key provider failures as internal errors")
	}
}

func TestJWTAuthenticator_UnknownKeyID(t *testing.T) {
	provider := keyProviderFunc(func(_ context.Context, keyID string) (any, error) {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, keyID)
	})
	auth := NewJWTAuthenticator(JWTConfig{}, provider)

	token := signHS256(t, []byte("secret"), jwt.MapClaims{
		"sub": "user123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	result, err := auth.Authenticate(context.Background(), &AuthRequest{
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
	})
	if err != nil {
		t.Fatalf("Authenticate() error = %v, unknown kid is a credential failure", err)
	}
	if result.Authenticated {
		t.Error("Authenticated = true for unknown key ID")
	}
	if !errors.Is(result.Error, ErrKeyNotFound) {
		t.Errorf("Error = %v, want ErrKeyNotFound", result.Error)
	}
}

// TestJWTAuthenticator_JWKSRoundTrip signs with an RSA key served over a
// JWKS endpoint and verifies the whole chain.
func TestJWTAuthenticator_JWKSRoundTrip(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	publicKey := &privateKey.PublicKey

	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": "rotation-2026-01",
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
			},
		},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	defer server.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":       "user123",
		"iss":       "https://idp.example.com",
		"aud":       "querygate",
		"exp":       time.Now().Add(time.Hour).Unix(),
		"tenant_id": "acme",
	})
	token.Header["kid"] = "rotation-2026-01"
	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	auth := NewJWTAuthenticator(JWTConfig{
		Issuer:   "https://idp.example.com",
		Audience: "querygate",
	}, NewJWKSKeyProvider(JWKSConfig{URL: server.URL}))

	result, err := auth.Authenticate(context.Background(), &AuthRequest{
		Headers: map[string][]string{"Authorization": {"Bearer " + tokenString}},
	})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Authenticated {
		t.Fatalf("Authenticated = false: %v", result.Error)
	}
	if result.Identity.TenantID != "acme" {
		t.Errorf("TenantID = %v, want acme", result.Identity.TenantID)
	}
}

func TestStaticKeyProvider(t *testing.T) {
	secret := []byte("my-secret")
	provider := NewStaticKeyProvider(secret)

	key, err := provider.GetKey(context.Background(), "any-key-id")
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}

	keyBytes, ok := key.([]byte)
	if !ok {
		t.Fatalf("GetKey() returned %T, want []byte", key)
	}

	if string(keyBytes) != string(secret) {
		t.Errorf("GetKey() = %v, want %v", string(keyBytes), string(secret))
	}
}
