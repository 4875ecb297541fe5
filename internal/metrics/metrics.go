// Package metrics exposes Prometheus counters for the alert pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records pipeline events as Prometheus metrics. A nil
// Recorder is valid and records nothing.
type Recorder struct {
	alertsTotal      *prometheus.CounterVec
	dedupSuppressed  prometheus.Counter
	advisoryOutcomes *prometheus.CounterVec
	advisoryLatency  *prometheus.HistogramVec
	verdictsTotal    *prometheus.CounterVec
	deliveryErrors   prometheus.Counter
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return &Recorder{
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_alerts_total",
				Help: "Inbound webhook alerts by processing status",
			},
			[]string{"status"},
		),
		dedupSuppressed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "consensus_dedup_suppressed_total",
				Help: "Alerts dropped by the deduplicator before advisory calls",
			},
		),
		advisoryOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_advisory_outcomes_total",
				Help: "Advisory call outcomes by source and opinion decision",
			},
			[]string{"source", "decision"},
		),
		advisoryLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "consensus_advisory_duration_seconds",
				Help:    "Duration of advisory calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		verdictsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_verdicts_total",
				Help: "Final verdicts by decision and safety result",
			},
			[]string{"decision", "safety"},
		),
		deliveryErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "consensus_delivery_errors_total",
				Help: "Failed verdict deliveries",
			},
		),
	}
}

// RecordAlert records one inbound alert with its processing status.
func (r *Recorder) RecordAlert(status string) {
	if r == nil {
		return
	}
	r.alertsTotal.WithLabelValues(status).Inc()
}

// RecordDedupSuppressed records a duplicate alert drop.
func (r *Recorder) RecordDedupSuppressed() {
	if r == nil {
		return
	}
	r.dedupSuppressed.Inc()
}

// RecordAdvisory records one advisory call outcome and its latency.
func (r *Recorder) RecordAdvisory(source, decision string, seconds float64) {
	if r == nil {
		return
	}
	r.advisoryOutcomes.WithLabelValues(source, decision).Inc()
	r.advisoryLatency.WithLabelValues(source).Observe(seconds)
}

// RecordVerdict records a final verdict.
func (r *Recorder) RecordVerdict(decision string, safetyPassed bool) {
	if r == nil {
		return
	}
	safety := "passed"
	if !safetyPassed {
		safety = "vetoed"
	}
	r.verdictsTotal.WithLabelValues(decision, safety).Inc()
}

// RecordDeliveryError records a failed notification.
func (r *Recorder) RecordDeliveryError() {
	if r == nil {
		return
	}
	r.deliveryErrors.Inc()
}
