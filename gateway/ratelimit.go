package gateway

import (
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jonwraymond/querygate/auth"
	"github.com/jonwraymond/querygate/cache"
	"github.com/jonwraymond/querygate/resilience"
)

// RateLimitConfig bounds each tenant's tool-call rate. A zero PerSecond
// disables limiting entirely.
type RateLimitConfig struct {
	// PerSecond is the sustained request rate allowed per tenant.
	PerSecond float64

	// Burst is how many requests a tenant may send above the sustained
	// rate before throttling starts.
	Burst int

	// MaxTenants bounds the limiter table. The least recently seen tenant
	// is evicted first and returns to a full bucket on its next request.
	// Default: 4096.
	MaxTenants int
}

// rateLimit enforces a per-tenant token bucket. It runs after the auth
// middleware so the tenant is already resolved; unauthenticated traffic
// shares the system tenant's bucket.
func rateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.MaxTenants <= 0 {
		cfg.MaxTenants = 4096
	}
	limiters, _ := lru.New[string, *resilience.RateLimiter](cfg.MaxTenants)

	var mu sync.Mutex
	limiterFor := func(tenant string) *resilience.RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		if rl, ok := limiters.Get(tenant); ok {
			return rl
		}
		rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.PerSecond,
			Burst: cfg.Burst,
		})
		limiters.Add(tenant, rl)
		return rl
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := auth.TenantIDFromContext(r.Context())
			if tenant == "" {
				tenant = cache.SystemTenant
			}
			if !limiterFor(tenant).Allow() {
				writeError(w, "", http.StatusTooManyRequests, resilience.ErrRateLimitExceeded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
