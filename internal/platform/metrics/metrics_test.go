package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transition("pending", "accepted")
	m.Transition("pending", "accepted")
	m.Expired("accepted")
	m.SweepDone(time.Now(), nil)
	m.SweepDone(time.Now(), errors.New("boom"))
	m.Decision("owner")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("pending", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepExpired.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepRuns.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("owner")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Transition("a", "b")
	m.Expired("a")
	m.SweepDone(time.Now(), nil)
	m.Decision("none")
}
