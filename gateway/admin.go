package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jonwraymond/querygate/auth"
	"github.com/jonwraymond/querygate/cache"
	"github.com/jonwraymond/querygate/config"
	"github.com/jonwraymond/querygate/health"
)

// AdminOptions configures the operational router returned by AdminRouter.
// Every field is optional; routes whose backing component is absent are
// simply not mounted.
type AdminOptions struct {
	// Reloader re-reads the config file behind POST /admin/reload.
	Reloader *config.Reloader

	// Health backs the liveness, readiness, and detailed health routes.
	Health *health.Aggregator

	// Cache backs the stats and invalidation routes.
	Cache cache.Provider

	// APIKey gates /health and everything under /admin. Empty leaves them
	// open, for deployments that fence the admin listener at the network
	// layer instead.
	APIKey string

	Logger *zap.Logger
}

// AdminRouter builds the operational surface: health probes, Prometheus
// metrics, config reload, and cache maintenance. It is served separately
// from the tool router so the two can be bound to different listeners.
//
//	GET    /healthz                              liveness (always open)
//	GET    /readyz                               readiness (always open)
//	GET    /metrics                              Prometheus metrics (always open)
//	GET    /health                               per-component detail (gated)
//	POST   /admin/reload                         re-read the config file (gated)
//	GET    /admin/cache/stats                    hit/miss counters (gated)
//	DELETE /admin/cache                          drop every entry (gated)
//	DELETE /admin/cache/{namespace}              drop one namespace (gated)
//	DELETE /admin/cache/{namespace}/{tenant}     drop one tenant's slice of it (gated)
func AdminRouter(opts AdminOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if opts.Health != nil {
		r.Get("/healthz", health.LivenessHandler())
		r.Get("/readyz", health.ReadinessHandler(opts.Health))
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	gated := r.With(adminGate(opts.APIKey))
	if opts.Health != nil {
		gated.Get("/health", health.DetailedHandler(opts.Health))
	}
	if opts.Reloader != nil {
		gated.Post("/admin/reload", reloadHandler(opts.Reloader, logger))
	}
	if opts.Cache != nil {
		gated.Get("/admin/cache/stats", cacheStatsHandler(opts.Cache))
		gated.Delete("/admin/cache", cacheClearHandler(opts.Cache, logger))
		gated.Delete("/admin/cache/{namespace}", cacheInvalidateHandler(opts.Cache, logger))
		gated.Delete("/admin/cache/{namespace}/{tenant}", cacheInvalidateHandler(opts.Cache, logger))
	}

	return r
}

// adminGate authenticates gated admin routes with a single static API key,
// presented in the X-API-Key header. With no key configured it is a no-op.
func adminGate(apiKey string) func(http.Handler) http.Handler {
	if apiKey == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	store := auth.NewMemoryAPIKeyStore()
	_ = store.Add(&auth.APIKeyInfo{
		ID:        "admin",
		KeyHash:   auth.HashAPIKey(apiKey),
		Principal: "admin",
		Roles:     []string{"admin"},
	})
	return auth.Middleware(auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{}, store), nil)
}

func reloadHandler(reloader *config.Reloader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := reloader.Reload(config.TriggerHTTP(r.RemoteAddr))
		status := http.StatusOK
		if !result.Success {
			status = http.StatusInternalServerError
			logger.Error("config reload failed",
				zap.String("trigger", result.Trigger),
				zap.String("error", result.Error))
		}
		writeJSON(w, status, result)
	}
}

func cacheStatsHandler(p cache.Provider) http.HandlerFunc {
	type statsResponse struct {
		cache.Stats
		HitRate float64 `json:"hit_rate"`
		Healthy bool    `json:"healthy"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		stats := p.Stats(r.Context())
		writeJSON(w, http.StatusOK, statsResponse{
			Stats:   stats,
			HitRate: stats.HitRate(),
			Healthy: p.HealthCheck(r.Context()),
		})
	}
}

func cacheClearHandler(p cache.Provider, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Clear(r.Context()); err != nil {
			writeError(w, "", http.StatusInternalServerError, err)
			return
		}
		logger.Info("cache cleared", zap.String("remote", r.RemoteAddr))
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

// cacheInvalidateHandler serves both the namespace-wide and the
// namespace+tenant routes; the tenant parameter is empty on the former.
func cacheInvalidateHandler(p cache.Provider, logger *zap.Logger) http.HandlerFunc {
	type invalidateResponse struct {
		Prefix  string `json:"prefix"`
		Removed int    `json:"removed"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ns := cache.Namespace(chi.URLParam(r, "namespace"))
		prefix := ns.Prefix()
		if tenant := chi.URLParam(r, "tenant"); tenant != "" {
			prefix = ns.TenantPrefix(tenant)
		}
		removed, err := p.DeleteByPrefix(r.Context(), prefix)
		if err != nil {
			writeError(w, "", http.StatusInternalServerError, err)
			return
		}
		logger.Info("cache invalidated",
			zap.String("prefix", prefix),
			zap.Int("removed", removed))
		writeJSON(w, http.StatusOK, invalidateResponse{Prefix: prefix, Removed: removed})
	}
}
