package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the claims subsystem.
type Metrics struct {
	ClaimsCreated        prometheus.Counter
	ClaimsReviewed       *prometheus.CounterVec
	TransitionDuration   prometheus.Histogram
	NotificationsDropped prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ClaimsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kvartal_claims_created_total",
			Help: "Total number of ownership claims submitted",
		}),
		ClaimsReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kvartal_claims_reviewed_total",
			Help: "Total review decisions, labeled by outcome and reviewer kind",
		}, []string{"outcome", "reviewer"}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kvartal_claim_transition_duration_ms",
			Help:    "Latency of claim status transitions in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kvartal_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch buffer was full",
		}),
	}
}

// RecordReview increments the review counter for an outcome/reviewer pair.
func (m *Metrics) RecordReview(outcome, reviewer string) {
	if m == nil {
		return
	}
	m.ClaimsReviewed.WithLabelValues(outcome, reviewer).Inc()
}
