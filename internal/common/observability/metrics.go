// internal/common/observability/metrics.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability publishes pipeline-level meters through the shared
// Prometheus registry. The fine-grained queue and workflow counters live in
// internal/common/metrics; this layer carries the service-level view.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	sweepCounter  otelmetric.Int64Counter
	sweepDuration otelmetric.Float64Histogram
	advanceCount  otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	sweepCounter, _ := meter.Int64Counter(
		"sweeps.completed",
		otelmetric.WithDescription("Number of bulk sweeps completed"),
	)

	sweepDuration, _ := meter.Float64Histogram(
		"sweeps.duration",
		otelmetric.WithDescription("Bulk sweep duration"),
		otelmetric.WithUnit("ms"),
	)

	advanceCount, _ := meter.Int64Counter(
		"advances.processed",
		otelmetric.WithDescription("Number of funnel advances processed"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		sweepCounter:  sweepCounter,
		sweepDuration: sweepDuration,
		advanceCount:  advanceCount,
	}
}

func (o *Observability) RecordSweep(ctx context.Context, kind string, duration time.Duration) {
	if o.sweepCounter != nil {
		o.sweepCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("kind", kind),
		))
	}
	if o.sweepDuration != nil {
		o.sweepDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("kind", kind),
		))
	}
}

func (o *Observability) RecordAdvance(ctx context.Context, stage string) {
	if o.advanceCount != nil {
		o.advanceCount.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("stage", stage),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
