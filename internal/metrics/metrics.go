package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the sign-in flow and the request gate.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AuthResults              *prometheus.CounterVec
	RadarDecisions           *prometheus.CounterVec
	GateRequests             *prometheus.CounterVec
	InvitationAcceptFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuthResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_results_total",
			Help: "Sign-in flow results by kind",
		}, []string{"kind"}),
		RadarDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_radar_decisions_total",
			Help: "Bot risk decisions taken before email sign-in",
		}, []string{"decision"}),
		GateRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_gate_requests_total",
			Help: "Edge gate outcomes",
		}, []string{"outcome"}),
		InvitationAcceptFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_invitation_accept_failures_total",
			Help: "Invitation acceptances that failed during sign-in and were skipped",
		}),
	}
}

func (m *Metrics) AuthResult(kind string) {
	if m == nil {
		return
	}
	m.AuthResults.WithLabelValues(kind).Inc()
}

func (m *Metrics) RadarDecision(decision string) {
	if m == nil {
		return
	}
	m.RadarDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) GateRequest(outcome string) {
	if m == nil {
		return
	}
	m.GateRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) InvitationAcceptFailure() {
	if m == nil {
		return
	}
	m.InvitationAcceptFailures.Inc()
}
