package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records lifecycle activity.
type Metrics struct {
	transitions *prometheus.CounterVec
	errors      *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// NewMetrics creates the lifecycle collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connectkit_lifecycle_transitions_total",
			Help: "State transitions of the authorization lifecycle.",
		}, []string{"from", "to"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connectkit_lifecycle_errors_total",
			Help: "Failures surfaced to the listener.",
		}, []string{"op", "code"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connectkit_lifecycle_stale_responses_total",
			Help: "Responses dropped because a newer request superseded them.",
		}, []string{"kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "connectkit_lifecycle_request_seconds",
			Help:    "Latency of requests issued by the lifecycle.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	reg.MustRegister(m.transitions, m.errors, m.dropped, m.latency)
	return m
}

func (m *Metrics) recordTransition(from, to State) {
	if m == nil || from == to {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) recordError(op Operation, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(string(op), code).Inc()
}

func (m *Metrics) recordDropped(kind string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(kind).Inc()
}

func (m *Metrics) observe(kind string, started time.Time) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}
