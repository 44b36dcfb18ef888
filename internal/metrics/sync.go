package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics holds the synchronization engine collectors.
type SyncMetrics struct {
	State          prometheus.Gauge
	Cursor         prometheus.Gauge
	Target         prometheus.Gauge
	Batches        prometheus.Counter
	PointsWritten  prometheus.Counter
	RecordsSkipped *prometheus.CounterVec
	UpsertRetries  prometheus.Counter
	BatchDuration  prometheus.Histogram
	Runs           *prometheus.CounterVec
}

// NewSyncMetrics creates the sync collectors and registers them on reg.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_state",
			Help:      "Current sync driver state (0 idle .. 7 failed)",
		}),
		Cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_cursor",
			Help:      "Highest profile id acknowledged by the vector store",
		}),
		Target: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_target",
			Help:      "Highest profile id in the source store at run start",
		}),
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_batches_total",
			Help:      "Total batches processed",
		}),
		PointsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_points_written_total",
			Help:      "Total points upserted",
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_skipped_total",
			Help:      "Total records skipped during sync",
		}, []string{"reason"}),
		UpsertRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_upsert_retries_total",
			Help:      "Total batch upsert retries",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_batch_duration_seconds",
			Help:      "Batch fetch-embed-upsert duration",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Total sync runs by result",
		}, []string{"result"}), // "done" / "failed"
	}

	reg.MustRegister(
		m.State, m.Cursor, m.Target,
		m.Batches, m.PointsWritten, m.RecordsSkipped,
		m.UpsertRetries, m.BatchDuration, m.Runs,
	)
	return m
}
