package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbPoolAcquires, jobCacheLookups) }

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Connections held by the sales database pool, by state.",
		},
		[]string{"state"}, // 'max', 'total', 'idle', 'in_use'
	)

	dbPoolAcquires = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_acquires",
			Help: "Cumulative connection acquires reported by the pool.",
		},
	)

	jobCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_job_cache_lookups_total",
			Help: "Import job status reads answered from redis or the database.",
		},
		[]string{"result"}, // 'hit', 'miss'
	)
)

// PoolStat is the subset of *pgxpool.Stat the pool gauges read.
type PoolStat interface {
	MaxConns() int32
	TotalConns() int32
	IdleConns() int32
	AcquiredConns() int32
	AcquireCount() int64
}

func SetDBPoolStats(s PoolStat) {
	dbPoolConns.WithLabelValues("max").Set(float64(s.MaxConns()))
	dbPoolConns.WithLabelValues("total").Set(float64(s.TotalConns()))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.IdleConns()))
	dbPoolConns.WithLabelValues("in_use").Set(float64(s.AcquiredConns()))
	dbPoolAcquires.Set(float64(s.AcquireCount()))
}

// IncJobCacheLookup counts one cached status read; result is "hit" or "miss".
func IncJobCacheLookup(result string) {
	jobCacheLookups.WithLabelValues(norm(result)).Inc()
}
