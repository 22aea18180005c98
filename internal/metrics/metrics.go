// Package metrics exposes Auralis's operational counters, histograms and
// gauges through a small Recorder interface, backed by
// github.com/prometheus/client_golang — a direct teacher dependency whose
// concrete recorder the retrieval pack only carries as a test double
// (internal/observability/metrics/recorder_test.go's TestRecorder/
// NoOpRecorder), so the interface shape (RecordOperation/RecordDuration/
// RecordError) is grounded on those tests while the production Prometheus
// wiring here is new, adapted to Auralis's domain counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the narrow interface every component depends on, so tests can
// substitute NoOpRecorder without touching a real registry.
type Recorder interface {
	RecordOperation(operation, status string)
	RecordDuration(operation string, seconds float64)
	RecordError(operation, errorType string)
	SetGauge(name string, value float64)
}

// PrometheusRecorder is the production Recorder, registering its own
// metric family on construction.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	gauges     *prometheus.GaugeVec
}

// NewPrometheusRecorder registers Auralis's metric families against reg.
// Pass prometheus.DefaultRegisterer for the global registry.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auralis",
			Name:      "operations_total",
			Help:      "Count of completed operations by name and outcome status.",
		}, []string{"operation", "status"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auralis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auralis",
			Name:      "errors_total",
			Help:      "Count of errors by operation and error type.",
		}, []string{"operation", "error_type"}),
		gauges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auralis",
			Name:      "gauge",
			Help:      "Point-in-time gauges keyed by name (cache byte usage, etc).",
		}, []string{"name"}),
	}
}

func (r *PrometheusRecorder) RecordOperation(operation, status string) {
	r.operations.WithLabelValues(operation, status).Inc()
}

func (r *PrometheusRecorder) RecordDuration(operation string, seconds float64) {
	r.durations.WithLabelValues(operation).Observe(seconds)
}

func (r *PrometheusRecorder) RecordError(operation, errorType string) {
	r.errors.WithLabelValues(operation, errorType).Inc()
}

func (r *PrometheusRecorder) SetGauge(name string, value float64) {
	r.gauges.WithLabelValues(name).Set(value)
}

// NoOpRecorder discards every call; the default for components that don't
// need metrics wired (tests, local dev without a registry).
type NoOpRecorder struct{}

// NewNoOpRecorder constructs a NoOpRecorder.
func NewNoOpRecorder() *NoOpRecorder { return &NoOpRecorder{} }

func (n *NoOpRecorder) RecordOperation(operation, status string)      {}
func (n *NoOpRecorder) RecordDuration(operation string, seconds float64) {}
func (n *NoOpRecorder) RecordError(operation, errorType string)       {}
func (n *NoOpRecorder) SetGauge(name string, value float64)           {}

// Operation names shared across components, so callers don't hand-roll
// string literals that could drift.
const (
	OpCacheLookup      = "cache_lookup"
	OpChunkProduction  = "chunk_production"
	OpStream           = "stream"

	StatusHitTier1 = "hit_tier1"
	StatusHitTier2 = "hit_tier2"
	StatusMiss     = "miss"
	StatusSuccess  = "success"
	StatusError    = "error"

	GaugeCacheBytesTier1 = "cache_bytes_tier1"
	GaugeCacheBytesTier2 = "cache_bytes_tier2"
)
