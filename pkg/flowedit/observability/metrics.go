package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records flowedit metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordMutation records an editor mutation and whether it was rejected.
	RecordMutation(ctx context.Context, op string, err error)

	// RecordLoad records a completed load request.
	RecordLoad(ctx context.Context, duration time.Duration, err error)

	// RecordSave records a completed save request and its payload size.
	RecordSave(ctx context.Context, duration time.Duration, sizeBytes int64, err error)

	// RecordStaleDiscard records a load response dropped as stale.
	RecordStaleDiscard(ctx context.Context)
}

type otelMetrics struct {
	mutations      metric.Int64Counter
	mutationErrors metric.Int64Counter
	loads          metric.Int64Counter
	saves          metric.Int64Counter
	syncLatency    metric.Float64Histogram
	saveSize       metric.Int64Histogram
	staleDiscards  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("flowedit")
	m := &otelMetrics{}
	var err error

	if m.mutations, err = meter.Int64Counter("flowedit.editor.mutations",
		metric.WithDescription("Number of editor mutations"),
	); err != nil {
		return nil, err
	}
	if m.mutationErrors, err = meter.Int64Counter("flowedit.editor.mutation_errors",
		metric.WithDescription("Number of rejected editor mutations"),
	); err != nil {
		return nil, err
	}
	if m.loads, err = meter.Int64Counter("flowedit.sync.loads",
		metric.WithDescription("Number of flow load requests"),
	); err != nil {
		return nil, err
	}
	if m.saves, err = meter.Int64Counter("flowedit.sync.saves",
		metric.WithDescription("Number of flow save requests"),
	); err != nil {
		return nil, err
	}
	if m.syncLatency, err = meter.Float64Histogram("flowedit.sync.latency_ms",
		metric.WithDescription("Remote store round-trip latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.saveSize, err = meter.Int64Histogram("flowedit.sync.save_size_bytes",
		metric.WithDescription("Serialized flow size in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if m.staleDiscards, err = meter.Int64Counter("flowedit.sync.stale_discards",
		metric.WithDescription("Number of load responses discarded as stale"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordMutation(ctx context.Context, op string, err error) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.mutations.Add(ctx, 1, attrs)
	if err != nil {
		m.mutationErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordLoad(ctx context.Context, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("op", "load"),
		attribute.Bool("success", err == nil),
	)
	m.loads.Add(ctx, 1, attrs)
	m.syncLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordSave(ctx context.Context, duration time.Duration, sizeBytes int64, err error) {
	attrs := metric.WithAttributes(
		attribute.String("op", "save"),
		attribute.Bool("success", err == nil),
	)
	m.saves.Add(ctx, 1, attrs)
	m.syncLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if sizeBytes > 0 {
		m.saveSize.Record(ctx, sizeBytes)
	}
}

func (m *otelMetrics) RecordStaleDiscard(ctx context.Context) {
	m.staleDiscards.Add(ctx, 1)
}
