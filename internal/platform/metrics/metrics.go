package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide HTTP metrics. Module metrics live with
// their modules.
type Metrics struct {
	RequestLatency    *prometheus.HistogramVec
	IdempotentReplays prometheus.Counter
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dealdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		IdempotentReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealdesk_http_idempotent_replays_total",
			Help: "Responses served from the idempotency store",
		}),
	}
}

func (m *Metrics) ObserveRequest(route, method, status string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementIdempotentReplay() {
	if m != nil {
		m.IdempotentReplays.Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
