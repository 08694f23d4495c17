package accountingsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounting_sync_invocations_total",
		Help: "Accounting sync invocations by operation and outcome.",
	}, []string{"operation", "status"})

	syncRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounting_sync_records_total",
		Help: "Records handled by accounting sync, by result (succeeded, skipped, failed, retryable).",
	}, []string{"operation", "result"})

	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accounting_sync_duration_seconds",
		Help:    "Time spent running one accounting sync operation.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"operation"})
)

func observeSync(op Operation, outcome Outcome, fold recordFold, seconds float64) {
	status := "success"
	if !outcome.Success {
		status = "failure"
	}
	syncInvocations.WithLabelValues(string(op), status).Inc()
	syncDuration.WithLabelValues(string(op)).Observe(seconds)

	syncRecords.WithLabelValues(string(op), "succeeded").Add(float64(fold.Succeeded))
	syncRecords.WithLabelValues(string(op), "skipped").Add(float64(fold.Skipped))
	syncRecords.WithLabelValues(string(op), "failed").Add(float64(len(fold.Errors)))
	syncRecords.WithLabelValues(string(op), "retryable").Add(float64(fold.Retryable))
}
