package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts relay throughput.
type Metrics struct {
	Published       prometheus.Counter
	PublishFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealdesk_outbox_published_total",
			Help: "Outbox rows published to the broker",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealdesk_outbox_publish_failures_total",
			Help: "Failed outbox publish attempts",
		}),
	}
}

func (m *Metrics) addPublished(n int) {
	if m == nil {
		return
	}
	m.Published.Add(float64(n))
}

func (m *Metrics) incFailures() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}
