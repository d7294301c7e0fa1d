// Package metrics exposes Prometheus collectors for the sync core. The host
// application decides whether and where to serve them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRuns counts completed sync cycles, labeled by result (ok/error).
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitsync_sync_runs_total",
		Help: "Total number of sync cycles, labeled by result",
	}, []string{"result"})

	// PushedRecords counts outbox records acknowledged by the server.
	PushedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitsync_pushed_records_total",
		Help: "Total number of outbox records successfully pushed",
	})

	// PulledRecords counts remote rows applied to the local store.
	PulledRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitsync_pulled_records_total",
		Help: "Total number of remote rows applied locally",
	})

	// OutboxBacklog tracks the last observed outbox depth. This is the
	// primary indicator of sync lag.
	OutboxBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "habitsync_outbox_backlog",
		Help: "Last observed number of pending outbox records",
	})

	// PushBatchDuration measures how long one push batch takes end to end.
	PushBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "habitsync_push_batch_duration_seconds",
		Help:    "Duration of one outbox push batch in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// DatabaseReopens counts forced reopens after stale-handle errors.
	// Frequent increments indicate an unstable embedded engine.
	DatabaseReopens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitsync_database_reopens_total",
		Help: "Total number of forced database connection reopens",
	})
)
