package metrics

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics counts API requests locally and on the OTel meter.
type HTTPMetrics struct {
	Requests       atomic.Int64
	Errors         atomic.Int64
	TotalLatencyNs atomic.Int64

	requestCounter   metric.Int64Counter
	errorCounter     metric.Int64Counter
	latencyHistogram metric.Float64Histogram
}

// NewHTTPMetrics creates the instruments on the global meter provider.
// Instruments that fail to register are skipped.
func NewHTTPMetrics(logger *log.Logger) *HTTPMetrics {
	if logger == nil {
		logger = log.Default()
	}
	meter := otel.Meter("mailscope/http")
	m := &HTTPMetrics{}

	var err error
	m.requestCounter, err = meter.Int64Counter(
		"mailscope.http.requests.total",
		metric.WithDescription("Total API requests handled"),
	)
	if err != nil {
		logger.Printf("failed to create request counter: %v", err)
	}

	m.errorCounter, err = meter.Int64Counter(
		"mailscope.http.errors.total",
		metric.WithDescription("Total API responses with status >= 500"),
	)
	if err != nil {
		logger.Printf("failed to create error counter: %v", err)
	}

	m.latencyHistogram, err = meter.Float64Histogram(
		"mailscope.http.response_time",
		metric.WithDescription("API response time (ms)"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Printf("failed to create latency histogram: %v", err)
	}

	return m
}

// Record accounts one finished request.
func (m *HTTPMetrics) Record(ctx context.Context, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Requests.Add(1)
	m.TotalLatencyNs.Add(duration.Nanoseconds())
	hadError := status >= 500
	if hadError {
		m.Errors.Add(1)
	}

	attrs := metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	if m.requestCounter != nil {
		m.requestCounter.Add(ctx, 1, attrs)
	}
	if m.latencyHistogram != nil {
		m.latencyHistogram.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if hadError && m.errorCounter != nil {
		m.errorCounter.Add(ctx, 1, attrs)
	}
}
