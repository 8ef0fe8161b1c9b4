package gateway

import "context"

type contextKey int

const invocationKey contextKey = iota

// WithInvocationID attaches a caller-chosen invocation ID to the context.
// The HTTP router sets one per request; library callers may set their own
// for log and trace correlation. Operations generate an ID when none is set.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey, id)
}

// InvocationIDFromContext returns the invocation ID, or "" when unset.
func InvocationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(invocationKey).(string)
	return id
}
