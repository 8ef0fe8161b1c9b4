package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jonwraymond/querygate/auth"
	"github.com/jonwraymond/querygate/query"
	"github.com/jonwraymond/querygate/resilience"
)

// Response is the envelope every tool endpoint returns on success. Cached
// reports whether the result came from the cache rather than the database.
type Response struct {
	InvocationID string `json:"invocation_id"`
	Cached       bool   `json:"cached"`
	Result       any    `json:"result"`
}

// ErrorResponse is the envelope for failures.
type ErrorResponse struct {
	Error        string `json:"error"`
	InvocationID string `json:"invocation_id,omitempty"`
}

// Router returns the tool listener's handler. Every request is
// authenticated and tenant-resolved before it reaches an operation; a nil
// authenticator disables authentication and every caller runs as the system
// tenant.
func (g *Gateway) Router(authn auth.Authenticator, resolver *auth.TenantResolver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(auth.WithAuthHeaders)
	r.Use(auth.Middleware(authn, resolver))
	if g.rateLimit.PerSecond > 0 {
		r.Use(rateLimit(g.rateLimit))
	}

	r.Route("/v1/tools", func(r chi.Router) {
		r.Post("/ping", g.handlePing)
		r.Post("/list_tables", handleTool(g.ListTables))
		r.Post("/describe_table", handleTool(g.DescribeTable))
		r.Post("/list_procedures", handleTool(g.ListProcedures))
		r.Post("/describe_procedure", handleTool(g.DescribeProcedure))
		r.Post("/execute_sql", handleTool(g.ExecuteSQL))
	})

	return r
}

func (g *Gateway) handlePing(w http.ResponseWriter, r *http.Request) {
	inv := uuid.NewString()
	res, err := g.Ping(WithInvocationID(r.Context(), inv))
	if err != nil {
		writeError(w, inv, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, Response{InvocationID: inv, Result: res})
}

// handleTool adapts one typed gateway operation to an HTTP handler: decode
// parameters, tag the invocation, run, wrap the result.
func handleTool[P, T any](op func(context.Context, P) (T, bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv := uuid.NewString()

		var params P
		if err := decodeParams(r, &params); err != nil {
			writeError(w, inv, http.StatusBadRequest, err)
			return
		}

		result, cached, err := op(WithInvocationID(r.Context(), inv), params)
		if err != nil {
			writeError(w, inv, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, Response{InvocationID: inv, Cached: cached, Result: result})
	}
}

// decodeParams reads the JSON body into v. An empty body selects the zero
// parameters, so argument-free calls need no body at all.
func decodeParams(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("gateway: decode params: %w", err)
	}
	return nil
}

// statusFor maps operation errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingSQL),
		errors.Is(err, ErrMissingTable),
		errors.Is(err, ErrMissingProcedure),
		errors.Is(err, ErrNoSchema),
		errors.Is(err, query.ErrInvalidIdentifier),
		errors.Is(err, query.ErrNotReadOnly):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrSchemaDenied),
		errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, query.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, resilience.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrBulkheadFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, resilience.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, invocationID string, status int, err error) {
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Driver and cache internals stay out of responses.
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg, InvocationID: invocationID})
}
