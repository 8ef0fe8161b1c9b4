package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// JWKSConfig configures the JWKS key provider.
type JWKSConfig struct {
	// URL is the JWKS endpoint URL.
	URL string

	// CacheTTL is how long to cache the key set before refreshing.
	// Default: 1 hour
	CacheTTL time.Duration

	// HTTPClient is the HTTP client to use for requests.
	// If nil, a default client with 30s timeout is used.
	HTTPClient *http.Client
}

// JWKSKeyProvider retrieves RSA signing keys from a JWKS endpoint.
// It implements KeyProvider with a refreshing cache; concurrent cache misses
// are collapsed into one fetch, and a refresh failure falls back to the last
// successfully fetched key set so signer outages do not take down token
// verification.
type JWKSKeyProvider struct {
	config JWKSConfig

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	last      map[string]*rsa.PublicKey

	group singleflight.Group
}

// NewJWKSKeyProvider creates a new JWKS key provider.
func NewJWKSKeyProvider(config JWKSConfig) *JWKSKeyProvider {
	if config.CacheTTL == 0 {
		config.CacheTTL = time.Hour
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &JWKSKeyProvider{
		config: config,
		keys:   make(map[string]*rsa.PublicKey),
		last:   make(map[string]*rsa.PublicKey),
	}
}

// GetKey returns the key for the given key ID. An empty keyID resolves only
// when the set holds exactly one key.
func (p *JWKSKeyProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	if key := p.fresh(keyID); key != nil {
		return key, nil
	}

	_, err, _ := p.group.Do("jwks", func() (any, error) {
		return nil, p.refresh(ctx)
	})
	if err != nil {
		// Serve the previous key set while the endpoint is down.
		if key := p.stale(keyID); key != nil {
			return key, nil
		}
		return nil, fmt.Errorf("auth: jwks refresh: %w", err)
	}

	p.mu.RLock()
	key := lookupKey(p.keys, keyID)
	p.mu.RUnlock()

	if key == nil {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, keyID)
	}
	return key, nil
}

// fresh returns the key when the cached set is within its TTL.
func (p *JWKSKeyProvider) fresh(keyID string) *rsa.PublicKey {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if time.Since(p.fetchedAt) >= p.config.CacheTTL {
		return nil
	}
	return lookupKey(p.keys, keyID)
}

// stale returns the key from the current or last-good set, TTL ignored.
func (p *JWKSKeyProvider) stale(keyID string) *rsa.PublicKey {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if key := lookupKey(p.keys, keyID); key != nil {
		return key
	}
	return lookupKey(p.last, keyID)
}

func lookupKey(keys map[string]*rsa.PublicKey, keyID string) *rsa.PublicKey {
	if keyID == "" {
		if len(keys) == 1 {
			for _, key := range keys {
				return key
			}
		}
		return nil
	}
	return keys[keyID]
}

// refresh fetches and replaces the key set.
func (p *JWKSKeyProvider) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var set jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		pub, err := parseRSAPublicKey(jwk)
		if err != nil {
			continue // skip unparseable keys, the rest of the set stays usable
		}
		keys[jwk.Kid] = pub
	}

	p.mu.Lock()
	p.keys = keys
	p.fetchedAt = time.Now()
	for kid, key := range keys {
		p.last[kid] = key
	}
	p.mu.Unlock()

	return nil
}

// jwksResponse is the JWKS endpoint response format.
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey represents a single JWK.
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// parseRSAPublicKey converts a JWK to an RSA public key.
func parseRSAPublicKey(jwk jwkKey) (*rsa.PublicKey, error) {
	if jwk.N == "" {
		return nil, fmt.Errorf("missing n parameter")
	}
	if jwk.E == "" {
		return nil, fmt.Errorf("missing e parameter")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	n := new(big.Int).SetBytes(nBytes)

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// Ensure JWKSKeyProvider implements KeyProvider
var _ KeyProvider = (*JWKSKeyProvider)(nil)
