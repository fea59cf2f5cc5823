package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_ledger_batches_total",
			Help: "Total number of distribution batches by outcome",
		},
		[]string{"status"},
	)

	BatchRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airdrop_ledger_batch_recipients",
			Help:    "Number of recipients per submitted batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
		},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airdrop_ledger_batch_duration_seconds",
			Help:    "Duration of batch processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"status"},
	)

	LamportsDistributedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_ledger_lamports_distributed_total",
			Help: "Total lamports distributed by committed batches",
		},
		[]string{"scope"},
	)

	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airdrop_ledger_events_dropped_total",
			Help: "Audit events dropped because a subscriber was not keeping up",
		},
	)

	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airdrop_ledger_event_subscribers",
			Help: "Number of active audit event subscribers",
		},
	)
)

// RecordBatch records the outcome of one Distribute call.
func RecordBatch(status string, recipients int, duration time.Duration) {
	BatchesTotal.WithLabelValues(status).Inc()
	BatchRecipients.Observe(float64(recipients))
	BatchDuration.WithLabelValues(status).Observe(duration.Seconds())
}
