package mcpserver

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	toolMetricsOnce      sync.Once
	toolRequestCounter   metric.Int64Counter
	toolErrorCounter     metric.Int64Counter
	toolLatencyHistogram metric.Float64Histogram
)

func initToolMetrics() {
	toolMetricsOnce.Do(func() {
		meter := otel.Meter("mailscope/mcpserver")

		var err error
		toolRequestCounter, err = meter.Int64Counter(
			"mailscope.mcp.requests.total",
			metric.WithDescription("Total MCP tool calls"),
		)
		if err != nil {
			log.Printf("observability: failed to create MCP request counter: %v", err)
		}

		toolErrorCounter, err = meter.Int64Counter(
			"mailscope.mcp.errors.total",
			metric.WithDescription("Total MCP tool calls that returned an error result"),
		)
		if err != nil {
			log.Printf("observability: failed to create MCP error counter: %v", err)
		}

		toolLatencyHistogram, err = meter.Float64Histogram(
			"mailscope.mcp.response_time",
			metric.WithDescription("MCP tool response time (ms)"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			log.Printf("observability: failed to create MCP latency histogram: %v", err)
		}
	})
}

func recordToolMetrics(ctx context.Context, tool string, duration time.Duration, errType string) {
	initToolMetrics()
	attrs := []attribute.KeyValue{attribute.String("tool.name", tool)}
	if toolRequestCounter != nil {
		toolRequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if toolLatencyHistogram != nil {
		toolLatencyHistogram.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
	if errType != "" && toolErrorCounter != nil {
		attrs = append(attrs, attribute.String("error.type", errType))
		toolErrorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
