package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest installs a test meter provider and returns its reader.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}
	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterTotal sums a counter across all attribute sets matching filter.
func counterTotal(t *testing.T, m *metricdata.Metrics, filter func(attribute.Set) bool) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if filter == nil || filter(dp.Attributes) {
			total += dp.Value
		}
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordMutation(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordMutation(ctx, "add_node", nil)
	m.RecordMutation(ctx, "add_node", nil)
	m.RecordMutation(ctx, "update_label", errors.New("missing"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(3), counterTotal(t, findMetric(rm, "flowedit.editor.mutations"), nil))
	assert.Equal(t, int64(2), counterTotal(t, findMetric(rm, "flowedit.editor.mutations"), func(s attribute.Set) bool {
		v, _ := s.Value("op")
		return v.AsString() == "add_node"
	}))
	assert.Equal(t, int64(1), counterTotal(t, findMetric(rm, "flowedit.editor.mutation_errors"), nil))
}

func TestRecordLoadAndSave(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordLoad(ctx, 20*time.Millisecond, nil)
	m.RecordLoad(ctx, 5*time.Millisecond, errors.New("down"))
	m.RecordSave(ctx, 10*time.Millisecond, 2048, nil)
	m.RecordSave(ctx, 10*time.Millisecond, 0, errors.New("down"))
	m.RecordStaleDiscard(ctx)

	rm := collectMetrics(t, reader)
	failed := func(s attribute.Set) bool {
		v, _ := s.Value("success")
		return !v.AsBool()
	}
	assert.Equal(t, int64(2), counterTotal(t, findMetric(rm, "flowedit.sync.loads"), nil))
	assert.Equal(t, int64(1), counterTotal(t, findMetric(rm, "flowedit.sync.loads"), failed))
	assert.Equal(t, int64(2), counterTotal(t, findMetric(rm, "flowedit.sync.saves"), nil))
	assert.Equal(t, int64(1), counterTotal(t, findMetric(rm, "flowedit.sync.stale_discards"), nil))

	latency := findMetric(rm, "flowedit.sync.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(4), count)

	size := findMetric(rm, "flowedit.sync.save_size_bytes")
	require.NotNil(t, size)
	sizeHist, ok := size.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, sizeHist.DataPoints, 1)
	assert.Equal(t, uint64(1), sizeHist.DataPoints[0].Count, "zero-size saves are not recorded")
	assert.Equal(t, int64(2048), sizeHist.DataPoints[0].Sum)
}
