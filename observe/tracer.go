package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// OpMeta identifies one gateway operation invocation for telemetry purposes.
type OpMeta struct {
	Op         string // Operation name, e.g. "execute_sql" (required)
	Tenant     string // Tenant the invocation runs as (required)
	Invocation string // Per-invocation ID (optional)
	Schema     string // Database schema in scope (optional)
	Object     string // Table or procedure being described (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: gateway.op.<name>
func (m OpMeta) SpanName() string {
	return "gateway.op." + m.Op
}

// Validate reports whether the metadata names an operation.
func (m OpMeta) Validate() error {
	if m.Op == "" {
		return ErrMissingOperation
	}
	return nil
}

// LogFields returns the metadata as structured log fields.
func (m OpMeta) LogFields() []zap.Field {
	fields := make([]zap.Field, 0, 5)
	fields = append(fields,
		zap.String("op", m.Op),
		zap.String("tenant", m.Tenant),
	)
	if m.Invocation != "" {
		fields = append(fields, zap.String("invocation_id", m.Invocation))
	}
	if m.Schema != "" {
		fields = append(fields, zap.String("schema", m.Schema))
	}
	if m.Object != "" {
		fields = append(fields, zap.String("object", m.Object))
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with operation-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan must propagate the parent span from ctx.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an operation invocation.
	StartSpan(ctx context.Context, op OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, op OpMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("gateway.op", op.Op),
		attribute.String("gateway.tenant", op.Tenant),
		attribute.Bool("gateway.error", false), // Updated in EndSpan on failure
	}
	if op.Invocation != "" {
		attrs = append(attrs, attribute.String("gateway.invocation_id", op.Invocation))
	}
	if op.Schema != "" {
		attrs = append(attrs, attribute.String("gateway.schema", op.Schema))
	}
	if op.Object != "" {
		attrs = append(attrs, attribute.String("gateway.object", op.Object))
	}

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("gateway.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, op OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, op.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
