package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "mailscope/metrics"

// RegisterUsageGauge exposes the recorder's cumulative totals as an
// observable gauge on the global meter provider. It must run after
// observability.Init.
func RegisterUsageGauge(r *Recorder) (metric.Registration, error) {
	meter := otel.Meter(meterName)

	gauge, err := meter.Int64ObservableGauge(
		"mailscope.usage.total",
		metric.WithDescription("Cumulative total requests by endpoint (search, stats, document, mcp)"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(ctx context.Context, observer metric.Observer) error {
		totals := r.Totals(ctx)
		for _, endpoint := range Endpoints {
			observer.ObserveInt64(gauge, totals[endpoint], metric.WithAttributes(
				attribute.String("endpoint", string(endpoint)),
			))
		}
		return nil
	}, gauge)
}
