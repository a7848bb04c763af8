// Package metrics provides Prometheus instrumentation for the knowledge
// engine. Metrics include:
//   - operation counters (by operation and outcome)
//   - operation latency histograms
//   - impact traversal size
//
// A nil *Metrics is valid and records nothing, so the engine can run
// uninstrumented in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lineage"

// Outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeNotFound   = "not_found"
	OutcomeValidation = "validation_error"
	OutcomeError      = "error"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	// OperationsTotal counts engine calls.
	// Labels: op, outcome
	OperationsTotal *prometheus.CounterVec

	// OperationDuration measures engine call latency.
	// Labels: op
	OperationDuration *prometheus.HistogramVec

	// ImpactNodes measures how many tree nodes one impact analysis produced.
	ImpactNodes prometheus.Histogram

	classify func(error) string
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry, which keeps repeated construction in tests safe.
// classify maps an engine error to an outcome label; nil means every
// error is OutcomeError.
func New(reg prometheus.Registerer, classify func(error) string) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Knowledge engine operations by outcome.",
		}, []string{"op", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Knowledge engine operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
		ImpactNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "impact",
			Name:      "nodes",
			Help:      "Tree nodes produced by one impact analysis.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		classify: classify,
	}
}

// Observe records one finished operation that started at start.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, m.outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveImpact records the size of one impact tree.
func (m *Metrics) ObserveImpact(nodes int) {
	if m == nil {
		return
	}
	m.ImpactNodes.Observe(float64(nodes))
}

func (m *Metrics) outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case m.classify != nil:
		return m.classify(err)
	default:
		return OutcomeError
	}
}
