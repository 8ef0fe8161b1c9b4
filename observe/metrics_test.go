package observe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*metricsImpl, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name in ResourceMetrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// TestMetrics_TotalCounterIncrements verifies gateway.op.total is incremented.
func TestMetrics_TotalCounterIncrements(t *testing.T) {
	m, reader := newTestMetrics(t)

	op := OpMeta{Op: "list_tables", Tenant: "acme"}
	m.RecordInvocation(context.Background(), op, 100*time.Millisecond, nil)

	rm := collect(t, reader)
	found := findMetric(rm, "gateway.op.total")
	if found == nil {
		t.Fatal("gateway.op.total metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("expected count 1, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_ErrorCounterOnSuccess verifies the error counter is NOT
// incremented on success.
func TestMetrics_ErrorCounterOnSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)

	op := OpMeta{Op: "ping", Tenant: "system"}
	m.RecordInvocation(context.Background(), op, 50*time.Millisecond, nil)

	rm := collect(t, reader)
	found := findMetric(rm, "gateway.op.errors")
	if found == nil {
		// No error datapoints recorded at all is the expected shape.
		return
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 0 {
		t.Errorf("expected errors count 0, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_ErrorCounterOnFailure verifies the error counter is
// incremented on failure.
func TestMetrics_ErrorCounterOnFailure(t *testing.T) {
	m, reader := newTestMetrics(t)

	op := OpMeta{Op: "execute_sql", Tenant: "acme"}
	m.RecordInvocation(context.Background(), op, 50*time.Millisecond, errors.New("statement rejected"))

	rm := collect(t, reader)
	found := findMetric(rm, "gateway.op.errors")
	if found == nil {
		t.Fatal("gateway.op.errors metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("expected errors count 1, got %d", sum.DataPoints[0].Value)
	}
}

// TestMetrics_DurationHistogramRecords verifies duration is recorded.
func TestMetrics_DurationHistogramRecords(t *testing.T) {
	m, reader := newTestMetrics(t)

	op := OpMeta{Op: "execute_sql", Tenant: "acme"}
	m.RecordInvocation(context.Background(), op, 50*time.Millisecond, nil)

	rm := collect(t, reader)
	found := findMetric(rm, "gateway.op.duration_ms")
	if found == nil {
		t.Fatal("gateway.op.duration_ms metric not found")
	}

	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}

	dp := hist.DataPoints[0]
	if dp.Sum != 50 {
		t.Errorf("expected recorded duration 50ms, got %f", dp.Sum)
	}
}

// TestMetrics_LabelsApplied verifies datapoints carry op and tenant labels
// and nothing of higher cardinality.
func TestMetrics_LabelsApplied(t *testing.T) {
	m, reader := newTestMetrics(t)

	op := OpMeta{
		Op:         "describe_table",
		Tenant:     "acme",
		Invocation: "inv-9000",
		Object:     "ORDERS",
	}
	m.RecordInvocation(context.Background(), op, 10*time.Millisecond, nil)

	rm := collect(t, reader)
	found := findMetric(rm, "gateway.op.total")
	if found == nil {
		t.Fatal("gateway.op.total metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}

	attrs := sum.DataPoints[0].Attributes
	var foundOp, foundTenant bool
	for iter := attrs.Iter(); iter.Next(); {
		kv := iter.Attribute()
		switch string(kv.Key) {
		case "gateway.op":
			foundOp = true
			if kv.Value.AsString() != "describe_table" {
				t.Errorf("expected gateway.op='describe_table', got %q", kv.Value.AsString())
			}
		case "gateway.tenant":
			foundTenant = true
			if kv.Value.AsString() != "acme" {
				t.Errorf("expected gateway.tenant='acme', got %q", kv.Value.AsString())
			}
		case "gateway.invocation_id", "gateway.object":
			t.Errorf("per-invocation attribute %s must not be a metric label", kv.Key)
		}
	}

	if !foundOp {
		t.Error("gateway.op attribute not found")
	}
	if !foundTenant {
		t.Error("gateway.tenant attribute not found")
	}
}

// TestMetrics_TenantsSeparateSeries verifies each tenant gets its own
// datapoint series.
func TestMetrics_TenantsSeparateSeries(t *testing.T) {
	m, reader := newTestMetrics(t)

	ctx := context.Background()
	m.RecordInvocation(ctx, OpMeta{Op: "list_tables", Tenant: "acme"}, time.Millisecond, nil)
	m.RecordInvocation(ctx, OpMeta{Op: "list_tables", Tenant: "acme"}, time.Millisecond, nil)
	m.RecordInvocation(ctx, OpMeta{Op: "list_tables", Tenant: "globex"}, time.Millisecond, nil)

	rm := collect(t, reader)
	found := findMetric(rm, "gateway.op.total")
	if found == nil {
		t.Fatal("gateway.op.total metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) != 2 {
		t.Fatalf("expected 2 series, got %d", len(sum.DataPoints))
	}

	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		for iter := dp.Attributes.Iter(); iter.Next(); {
			kv := iter.Attribute()
			if string(kv.Key) == "gateway.tenant" {
				counts[kv.Value.AsString()] = dp.Value
			}
		}
	}
	if counts["acme"] != 2 {
		t.Errorf("expected acme count 2, got %d", counts["acme"])
	}
	if counts["globex"] != 1 {
		t.Errorf("expected globex count 1, got %d", counts["globex"])
	}
}

// TestMetrics_ConcurrentRecording verifies thread safety.
func TestMetrics_ConcurrentRecording(t *testing.T) {
	m, reader := newTestMetrics(t)

	op := OpMeta{Op: "execute_sql", Tenant: "acme"}
	const numGoroutines = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			m.RecordInvocation(context.Background(), op, time.Millisecond, nil)
		}()
	}
	wg.Wait()

	rm := collect(t, reader)
	found := findMetric(rm, "gateway.op.total")
	if found == nil {
		t.Fatal("gateway.op.total metric not found")
	}

	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if sum.DataPoints[0].Value != numGoroutines {
		t.Errorf("expected count %d, got %d", numGoroutines, sum.DataPoints[0].Value)
	}
}
