package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperationIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.RecordOperation(OpCacheLookup, StatusHitTier1)
	rec.RecordOperation(OpCacheLookup, StatusHitTier1)
	rec.RecordOperation(OpCacheLookup, StatusMiss)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "auralis_operations_total" {
			found = mf
		}
	}
	require.NotNil(t, found)
	assert.Len(t, found.Metric, 2)
}

func TestSetGaugeReflectsLatestValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.SetGauge(GaugeCacheBytesTier1, 1024)
	rec.SetGauge(GaugeCacheBytesTier1, 2048)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "auralis_gauge" {
			found = mf
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Metric, 1)
	assert.InDelta(t, 2048, found.Metric[0].GetGauge().GetValue(), 0.01)
}

func TestNoOpRecorderDoesNotPanic(t *testing.T) {
	rec := NewNoOpRecorder()
	rec.RecordOperation("x", "y")
	rec.RecordDuration("x", 1.0)
	rec.RecordError("x", "y")
	rec.SetGauge("x", 1.0)
}
