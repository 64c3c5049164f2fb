package datastore

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DBNameLabel is the constant label naming the database a pool connects to.
const DBNameLabel = "db_name"

type StatsSource interface {
	Stat() *pgxpool.Stat
}

// PoolStatsCollector exports pgxpool.Stat on every scrape.
// It implements the prometheus.Collector interface.
type PoolStatsCollector struct {
	db StatsSource

	MaxConns        *prometheus.Desc
	TotalConns      *prometheus.Desc
	AcquiredConns   *prometheus.Desc
	IdleConns       *prometheus.Desc
	AcquireCount    *prometheus.Desc
	AcquireDuration *prometheus.Desc
}

func NewPoolStatsCollector(db StatsSource, dbName string) *PoolStatsCollector {
	labels := prometheus.Labels{DBNameLabel: dbName}
	return &PoolStatsCollector{
		db:              db,
		MaxConns:        prometheus.NewDesc("db_pool_max_conns", "Maximum number of connections in the pool.", nil, labels),
		TotalConns:      prometheus.NewDesc("db_pool_total_conns", "Total number of connections in the pool.", nil, labels),
		AcquiredConns:   prometheus.NewDesc("db_pool_acquired_conns", "Number of currently acquired connections in the pool.", nil, labels),
		IdleConns:       prometheus.NewDesc("db_pool_idle_conns", "Number of currently idle connections in the pool.", nil, labels),
		AcquireCount:    prometheus.NewDesc("db_pool_acquire_count_total", "Cumulative count of successful connection acquisitions.", nil, labels),
		AcquireDuration: prometheus.NewDesc("db_pool_acquire_duration_seconds_total", "Total time blocked waiting for a new connection, in seconds.", nil, labels),
	}
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.MaxConns
	ch <- c.TotalConns
	ch <- c.AcquiredConns
	ch <- c.IdleConns
	ch <- c.AcquireCount
	ch <- c.AcquireDuration
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.db.Stat()
	ch <- prometheus.MustNewConstMetric(c.MaxConns, prometheus.GaugeValue, float64(stats.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.TotalConns, prometheus.GaugeValue, float64(stats.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.AcquiredConns, prometheus.GaugeValue, float64(stats.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.IdleConns, prometheus.GaugeValue, float64(stats.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.AcquireCount, prometheus.CounterValue, float64(stats.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.AcquireDuration, prometheus.CounterValue, stats.AcquireDuration().Seconds())
}
