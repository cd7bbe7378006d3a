package metrics

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// RegisterHistoryPoolMetrics exposes the history database pool as gauges.
func RegisterHistoryPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) {
	gauge := func(name, help string, f func(*pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "installer_history_pool_" + name,
			Help: help,
		}, func() float64 {
			return f(pool.Stat())
		})
	}
	reg.MustRegister(
		gauge("acquired_conns", "Number of currently acquired history connections",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge("idle_conns", "Number of idle history connections",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		gauge("total_conns", "Total number of history connections",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("max_conns", "Maximum number of history connections",
			func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
	)
}

// RegisterMySQLPoolMetrics exposes database/sql statistics of the MySQL pool
// under the db_name="mysql" label.
func RegisterMySQLPoolMetrics(reg prometheus.Registerer, db *sql.DB) {
	reg.MustRegister(collectors.NewDBStatsCollector(db, "mysql"))
}
