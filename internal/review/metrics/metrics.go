package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the review, appeal and conditions services.
type Metrics struct {
	// Ledger entries written, by action
	Entries *prometheus.CounterVec

	// Reviewer outcomes, including those produced by overturned appeals
	Decisions *prometheus.CounterVec

	// Appends lost to a concurrent writer
	Conflicts *prometheus.CounterVec

	// Appeal lifecycle events: filed, upheld, overturned
	Appeals *prometheus.CounterVec

	OperationLatency *prometheus.HistogramVec
}

// New registers the review metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		Entries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_review_ledger_entries_total",
			Help: "Ledger entries appended by review operations, by action",
		}, []string{"action"}),

		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_review_decisions_total",
			Help: "Recorded decisions by outcome",
		}, []string{"outcome"}),

		Conflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_review_conflicts_total",
			Help: "Mutations rejected because the subject changed concurrently",
		}, []string{"operation"}),

		Appeals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealdesk_review_appeals_total",
			Help: "Appeal lifecycle events",
		}, []string{"event"}),

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dealdesk_review_operation_duration_seconds",
			Help:    "Duration of review operations including the ledger transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementEntry(action string) {
	if m != nil {
		m.Entries.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncrementDecision(outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementConflict(operation string) {
	if m != nil {
		m.Conflicts.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) IncrementAppeal(event string) {
	if m != nil {
		m.Appeals.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
