package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var errMissing = errors.New("missing")

func TestObserve_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, func(err error) string {
		if errors.Is(err, errMissing) {
			return OutcomeNotFound
		}
		return OutcomeError
	})

	start := time.Now()
	m.Observe("get_version", start, nil)
	m.Observe("get_version", start, errMissing)
	m.Observe("get_version", start, errMissing)
	m.Observe("create_version", start, errors.New("disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("get_version", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("get_version", OutcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("create_version", OutcomeError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.OperationDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe("analyze_impact", time.Now(), nil)
		m.ObserveImpact(3)
	})
}

func TestNew_NilRegistererIsIsolated(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil, nil)
		New(nil, nil)
	})
}
