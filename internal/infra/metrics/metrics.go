// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(importsTotal, importRowsTotal, importBatchFlushesTotal, importDurationSeconds, sweeperTimeoutsTotal)
}

var (
	importsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imports_total",
			Help: "Import jobs by lifecycle outcome.",
		},
		[]string{"status"}, // 'accepted', 'rejected', 'completed', 'error'
	)

	importRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Source rows seen by the import pipeline.",
		},
		[]string{"result"}, // 'persisted', 'invalid', 'failed'
	)

	importBatchFlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_batch_flushes_total",
			Help: "Batch inserts attempted by the import pipeline.",
		},
		[]string{"result"}, // 'ok', 'failed'
	)

	importDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "import_duration_seconds",
			Help:    "Wall time of one import run, from dequeue to finalize.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600, 1800},
		},
	)

	sweeperTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "import_sweeper_timeouts_total",
			Help: "Import jobs marked as failed by the stuck-job sweeper.",
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Import helpers --------

func IncImport(status string) {
	importsTotal.WithLabelValues(norm(status)).Inc()
}

func AddImportRows(result string, n int) {
	if n <= 0 {
		return
	}
	importRowsTotal.WithLabelValues(norm(result)).Add(float64(n))
}

func IncBatchFlush(result string) {
	importBatchFlushesTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveImportDuration(d time.Duration) {
	importDurationSeconds.Observe(d.Seconds())
}

func AddSweeperTimeouts(n int) {
	if n <= 0 {
		return
	}
	sweeperTimeoutsTotal.Add(float64(n))
}
