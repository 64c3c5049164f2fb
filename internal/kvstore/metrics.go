package kvstore

import (
	"errors"
	"time"

	"github.com/ndajr/urlshortener-kv/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// BackendLabel is the label for store metrics, naming the backend (e.g., "redis", "postgres").
	BackendLabel = "backend"
	// OpLabel is the label for store metrics, naming the operation (e.g., "Get", "Put").
	OpLabel = "op"
	// StatusLabel is the label for store metrics, representing the outcome.
	StatusLabel = "status"

	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusExists   = "exists"
	StatusError    = "error"
)

// Metrics contains the Prometheus collectors shared by all store backends.
type Metrics struct {
	backend  string
	Duration *prometheus.HistogramVec
	Total    *prometheus.CounterVec
}

// NewMetrics returns the store collectors labelled with backend.
func NewMetrics(backend string) Metrics {
	return Metrics{
		backend: backend,
		Duration: metrics.Register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kvstore_op_duration_seconds",
			Help:    "The latency of key-value store operations in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{BackendLabel, OpLabel})),
		Total: metrics.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvstore_op_total",
			Help: "The total number of key-value store operations.",
		}, []string{BackendLabel, OpLabel, StatusLabel})),
	}
}

// Observe records one operation that started at start and ended with err.
func (m Metrics) Observe(op string, start time.Time, err error) {
	m.Duration.WithLabelValues(m.backend, op).Observe(time.Since(start).Seconds())
	m.Total.WithLabelValues(m.backend, op, statusOf(err)).Inc()
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrExists):
		return StatusExists
	default:
		return StatusError
	}
}
