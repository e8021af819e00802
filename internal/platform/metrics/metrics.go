package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics expone collectors de Prometheus para el ledger y el reaper.
// Un *Metrics nil es válido: todos los métodos son no-op.
type Metrics struct {
	transitions   *prometheus.CounterVec
	sweepRuns     *prometheus.CounterVec
	sweepExpired  *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	decisions     *prometheus.CounterVec
}

// New registra los collectors en registerer. Si es nil usa el registerer por defecto.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharing",
			Name:      "transitions_total",
			Help:      "Transiciones de estado aplicadas sobre sharing requests.",
		}, []string{"from", "to"}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "reaper",
			Name:      "runs_total",
			Help:      "Ejecuciones del barrido de expiración.",
		}, []string{"status"}),
		sweepExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "reaper",
			Name:      "expired_total",
			Help:      "Requests marcados como expirados, por estado previo.",
		}, []string{"from"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sharing",
			Subsystem: "reaper",
			Name:      "duration_seconds",
			Help:      "Duración del barrido de expiración.",
			Buckets:   prometheus.DefBuckets,
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "access",
			Name:      "decisions_total",
			Help:      "Decisiones de permiso por base (owner, admin, department, shared, none).",
		}, []string{"basis"}),
	}

	registerer.MustRegister(m.transitions, m.sweepRuns, m.sweepExpired, m.sweepDuration, m.decisions)
	return m
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// SweepDone registra una corrida del reaper.
func (m *Metrics) SweepDone(started time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.sweepRuns.WithLabelValues(status).Inc()
	m.sweepDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) Expired(from string) {
	if m == nil {
		return
	}
	m.sweepExpired.WithLabelValues(from).Inc()
}

func (m *Metrics) Decision(basis string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(basis).Inc()
}
