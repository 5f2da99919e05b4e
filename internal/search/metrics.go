package search

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type engineMetrics struct {
	requests metric.Int64Counter
	outcomes metric.Int64Counter
	latency  metric.Float64Histogram
}

func newEngineMetrics(m metric.Meter) engineMetrics {
	if m == nil {
		m = noop.NewMeterProvider().Meter("")
	}
	fallback := noop.NewMeterProvider().Meter("")

	requests, err := m.Int64Counter("search_requests_total",
		metric.WithDescription("Search and next-page requests issued to the backend"))
	if err != nil {
		otel.Handle(err)
		requests, _ = fallback.Int64Counter("search_requests_total")
	}
	outcomes, err := m.Int64Counter("search_outcomes_total",
		metric.WithDescription("Search and next-page outcomes by kind"))
	if err != nil {
		otel.Handle(err)
		outcomes, _ = fallback.Int64Counter("search_outcomes_total")
	}
	latency, err := m.Float64Histogram("search_latency_seconds",
		metric.WithDescription("Backend round-trip latency"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
		latency, _ = fallback.Float64Histogram("search_latency_seconds")
	}
	return engineMetrics{requests: requests, outcomes: outcomes, latency: latency}
}

func (m engineMetrics) request(ctx context.Context, op string, took time.Duration) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.requests.Add(ctx, 1, attrs)
	m.latency.Record(ctx, took.Seconds(), attrs)
}

func (m engineMetrics) outcome(ctx context.Context, op string, o Outcome) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", o.String()),
	))
}
