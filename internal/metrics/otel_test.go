package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func withManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return reader
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestRegisterUsageGauge(t *testing.T) {
	reader := withManualReader(t)
	ctx := context.Background()

	store := newTestStore(t)
	for _, endpoint := range []Endpoint{EndpointSearch, EndpointSearch, EndpointSearch, EndpointStats, EndpointMCP, EndpointMCP} {
		require.NoError(t, store.Increment(ctx, endpoint))
	}

	reg, err := RegisterUsageGauge(NewRecorder(store, nil))
	require.NoError(t, err)
	defer func() { _ = reg.Unregister() }()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	m, ok := findMetric(rm, "mailscope.usage.total")
	require.True(t, ok, "usage gauge not collected")

	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "expected Gauge[int64], got %T", m.Data)

	got := make(map[string]int64)
	for _, dp := range gauge.DataPoints {
		value, present := dp.Attributes.Value(attribute.Key("endpoint"))
		require.True(t, present)
		got[value.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"search":   3,
		"stats":    1,
		"document": 0,
		"mcp":      2,
	}, got)
}

func TestRegisterUsageGauge_DisabledTracking(t *testing.T) {
	reader := withManualReader(t)

	reg, err := RegisterUsageGauge(nil)
	require.NoError(t, err)
	defer func() { _ = reg.Unregister() }()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	m, ok := findMetric(rm, "mailscope.usage.total")
	require.True(t, ok)
	gauge := m.Data.(metricdata.Gauge[int64])
	assert.Len(t, gauge.DataPoints, len(Endpoints))
	for _, dp := range gauge.DataPoints {
		assert.Zero(t, dp.Value)
	}
}

func TestHTTPMetrics_Record(t *testing.T) {
	reader := withManualReader(t)
	ctx := context.Background()

	m := NewHTTPMetrics(nil)
	m.Record(ctx, "/api/search", 200, 15*time.Millisecond)
	m.Record(ctx, "/api/search", 500, 5*time.Millisecond)

	assert.Equal(t, int64(2), m.Requests.Load())
	assert.Equal(t, int64(1), m.Errors.Load())
	assert.Equal(t, (20 * time.Millisecond).Nanoseconds(), m.TotalLatencyNs.Load())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	requests, ok := findMetric(rm, "mailscope.http.requests.total")
	require.True(t, ok)
	sum := requests.Data.(metricdata.Sum[int64])
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	errorsMetric, ok := findMetric(rm, "mailscope.http.errors.total")
	require.True(t, ok)
	errSum := errorsMetric.Data.(metricdata.Sum[int64])
	require.Len(t, errSum.DataPoints, 1)
	assert.Equal(t, int64(1), errSum.DataPoints[0].Value)

	_, ok = findMetric(rm, "mailscope.http.response_time")
	assert.True(t, ok)
}

func TestHTTPMetrics_NilSafe(t *testing.T) {
	var m *HTTPMetrics
	assert.NotPanics(t, func() { m.Record(context.Background(), "/", 200, time.Millisecond) })
}
