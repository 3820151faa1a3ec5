// Package monitoring provides Prometheus metrics and OpenTelemetry tracing
package monitoring

import (
	"database/sql"
	"time"

	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "planner"

// EngineMetrics implements outbound.EngineMetrics on Prometheus
type EngineMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	aggregationDays   prometheus.Histogram
	aggregationItems  prometheus.Histogram
	unresolvedItems   prometheus.Counter
	confidence        *prometheus.HistogramVec
}

var _ outbound.EngineMetrics = (*EngineMetrics)(nil)

// NewEngineMetrics creates the engine collectors and registers them on reg
func NewEngineMetrics(reg prometheus.Registerer) (*EngineMetrics, error) {
	m := &EngineMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Engine operations by outcome; outcome is OK or the error code",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Engine operation latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		aggregationDays: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_days",
				Help:      "Days with planned items per meal plan aggregation",
				Buckets:   []float64{1, 3, 7, 14, 31, 62, 93},
			},
		),
		aggregationItems: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_items",
				Help:      "Planned items per meal plan aggregation",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		unresolvedItems: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregation_unresolved_items_total",
				Help:      "Planned items that could not be resolved to a recipe",
			},
		),
		confidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "preference_confidence",
				Help:      "Confidence of preferences after a merge",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"category"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.aggregationDays,
		m.aggregationItems,
		m.unresolvedItems,
		m.confidence,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveOperation records one service call
func (m *EngineMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveAggregation records the shape of one calendar
func (m *EngineMetrics) ObserveAggregation(days, items, unresolved int) {
	m.aggregationDays.Observe(float64(days))
	m.aggregationItems.Observe(float64(items))
	m.unresolvedItems.Add(float64(unresolved))
}

// ObserveConfidence records a preference confidence after a merge
func (m *EngineMetrics) ObserveConfidence(category string, confidence float64) {
	m.confidence.WithLabelValues(category).Observe(confidence)
}

// RegisterDBStats exposes connection pool statistics of db under name
func RegisterDBStats(reg prometheus.Registerer, db *sql.DB, name string) error {
	return reg.Register(collectors.NewDBStatsCollector(db, name))
}

// NewRegistry creates a registry with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
