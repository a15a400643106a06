package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the complaint module.
type Metrics struct {
	// Transition outcomes by action and result
	Transitions *prometheus.CounterVec

	// Registered cases by article
	Registrations *prometheus.CounterVec

	// Contended submissions rejected while another transition held the case
	LockContention prometheus.Counter

	// Full submit-action latency including persistence
	SubmitLatency prometheus.Histogram
}

// New creates a new Metrics instance with all complaint module metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "disciplina_case_transitions_total",
			Help: "Total case transition attempts by action and result",
		}, []string{"action", "result"}), // result: "accepted", "illegal", "guard_failed", "invalid_payload", "error"

		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "disciplina_case_registrations_total",
			Help: "Total registered cases by article",
		}, []string{"article"}),

		LockContention: promauto.NewCounter(prometheus.CounterOpts{
			Name: "disciplina_case_lock_contention_total",
			Help: "Submissions rejected because another transition held the case",
		}),

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "disciplina_case_submit_duration_seconds",
			Help:    "Duration of submit-action handling including persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementTransition records a transition attempt outcome.
func (m *Metrics) IncrementTransition(action, result string) {
	if m != nil {
		m.Transitions.WithLabelValues(action, result).Inc()
	}
}

// IncrementRegistration records a case registration.
func (m *Metrics) IncrementRegistration(article string) {
	if m != nil {
		m.Registrations.WithLabelValues(article).Inc()
	}
}

// IncrementLockContention records a fail-fast rejection on a held case.
func (m *Metrics) IncrementLockContention() {
	if m != nil {
		m.LockContention.Inc()
	}
}

// ObserveSubmitLatency records the full submit-action duration.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
