package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestOpMeta_SpanName verifies the deterministic span naming scheme.
func TestOpMeta_SpanName(t *testing.T) {
	tests := []struct {
		op       string
		expected string
	}{
		{"execute_sql", "gateway.op.execute_sql"},
		{"list_tables", "gateway.op.list_tables"},
		{"ping", "gateway.op.ping"},
	}

	for _, tc := range tests {
		meta := OpMeta{Op: tc.op}
		if got := meta.SpanName(); got != tc.expected {
			t.Errorf("SpanName(%q) = %q, want %q", tc.op, got, tc.expected)
		}
	}
}

// TestOpMeta_Validate verifies the operation name is required.
func TestOpMeta_Validate(t *testing.T) {
	valid := OpMeta{Op: "list_tables", Tenant: "acme"}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}

	missing := OpMeta{Tenant: "acme"}
	if err := missing.Validate(); !errors.Is(err, ErrMissingOperation) {
		t.Errorf("expected ErrMissingOperation, got: %v", err)
	}
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]attribute.Value {
	attrMap := make(map[string]attribute.Value)
	for _, a := range s.Attributes() {
		attrMap[string(a.Key)] = a.Value
	}
	return attrMap
}

// TestTracer_SpanAttributes verifies all attributes are present on the span.
func TestTracer_SpanAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := OpMeta{
		Op:         "describe_table",
		Tenant:     "acme",
		Invocation: "inv-42",
		Schema:     "SALES",
		Object:     "ORDERS",
	}

	_, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Name() != "gateway.op.describe_table" {
		t.Errorf("expected span name 'gateway.op.describe_table', got %q", s.Name())
	}

	attrMap := spanAttrs(s)
	if v, ok := attrMap["gateway.op"]; !ok || v.AsString() != "describe_table" {
		t.Errorf("expected gateway.op='describe_table', got %v", v)
	}
	if v, ok := attrMap["gateway.tenant"]; !ok || v.AsString() != "acme" {
		t.Errorf("expected gateway.tenant='acme', got %v", v)
	}
	if v, ok := attrMap["gateway.error"]; !ok || v.AsBool() {
		t.Errorf("expected gateway.error=false, got %v", v)
	}
	if v, ok := attrMap["gateway.invocation_id"]; !ok || v.AsString() != "inv-42" {
		t.Errorf("expected gateway.invocation_id='inv-42', got %v", v)
	}
	if v, ok := attrMap["gateway.schema"]; !ok || v.AsString() != "SALES" {
		t.Errorf("expected gateway.schema='SALES', got %v", v)
	}
	if v, ok := attrMap["gateway.object"]; !ok || v.AsString() != "ORDERS" {
		t.Errorf("expected gateway.object='ORDERS', got %v", v)
	}

	if s.Status().Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", s.Status().Code)
	}
}

// TestTracer_SpanAttributesMinimal verifies optional attributes are omitted
// when empty.
func TestTracer_SpanAttributesMinimal(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := OpMeta{Op: "ping", Tenant: "system"}

	_, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	attrMap := spanAttrs(spans[0])
	for _, required := range []string{"gateway.op", "gateway.tenant", "gateway.error"} {
		if _, ok := attrMap[required]; !ok {
			t.Errorf("expected %s attribute", required)
		}
	}
	for _, optional := range []string{"gateway.invocation_id", "gateway.schema", "gateway.object"} {
		if _, ok := attrMap[optional]; ok {
			t.Errorf("expected no %s attribute for empty metadata", optional)
		}
	}
}

// TestTracer_ContextPropagation verifies the parent span is propagated.
func TestTracer_ContextPropagation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := OpMeta{Op: "execute_sql", Tenant: "acme"}

	parentCtx, parentSpan := tracer.Start(context.Background(), "request")

	_, childSpan := tr.StartSpan(parentCtx, meta)
	tr.EndSpan(childSpan, nil)
	parentSpan.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	var child sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == "gateway.op.execute_sql" {
			child = s
			break
		}
	}
	if child == nil {
		t.Fatal("child span not found")
	}

	if child.Parent().TraceID() != parentSpan.SpanContext().TraceID() {
		t.Error("child span should have same trace ID as parent")
	}
	if !child.Parent().SpanID().IsValid() {
		t.Error("child span should have valid parent span ID")
	}
}

// TestTracer_ErrorRecording verifies an error sets span status and attribute.
func TestTracer_ErrorRecording(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := OpMeta{Op: "execute_sql", Tenant: "acme"}

	_, span := tr.StartSpan(context.Background(), meta)
	testErr := errors.New("statement rejected")
	tr.EndSpan(span, testErr)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status().Code)
	}
	if s.Status().Description != "statement rejected" {
		t.Errorf("expected status description from error, got %q", s.Status().Description)
	}

	attrMap := spanAttrs(s)
	if v, ok := attrMap["gateway.error"]; !ok || !v.AsBool() {
		t.Error("expected gateway.error=true")
	}

	if len(s.Events()) == 0 {
		t.Error("expected a recorded error event")
	}
}
