package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks response record transitions.
type Metrics struct {
	// Transitions by ledger action
	Transitions *prometheus.CounterVec

	// Refused reconsiderations by error code
	ReconsiderRefusals *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_response_transitions_total",
			Help: "Response record transitions by action",
		}, []string{"action"}),
		ReconsiderRefusals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_response_reconsider_refusals_total",
			Help: "Reconsider attempts refused, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementTransition(action string) {
	if m != nil {
		m.Transitions.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncrementReconsiderRefusal(reason string) {
	if m != nil {
		m.ReconsiderRefusals.WithLabelValues(reason).Inc()
	}
}
