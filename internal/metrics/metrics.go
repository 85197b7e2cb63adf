package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for upstream calls.
const (
	OutcomeOK     = "ok"
	OutcomeStatus = "bad_status"
	OutcomeError  = "error"
)

// Metrics groups the collectors for upstream traffic. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	routedResponses  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plc_copilot",
			Name:      "upstream_requests_total",
			Help:      "Requests sent to upstream services by target and outcome.",
		}, []string{"target", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plc_copilot",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of upstream requests.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		}, []string{"target"}),
		routedResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plc_copilot",
			Name:      "routed_responses_total",
			Help:      "Generation answers by routed kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.upstreamRequests, m.upstreamDuration, m.routedResponses)
	}
	return m
}

func (m *Metrics) ObserveUpstream(target, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(target, outcome).Inc()
	m.upstreamDuration.WithLabelValues(target).Observe(d.Seconds())
}

func (m *Metrics) ObserveRoute(kind string) {
	if m == nil || kind == "" {
		return
	}
	m.routedResponses.WithLabelValues(kind).Inc()
}
