package cachestore

import (
	"github.com/ndajr/urlshortener-kv/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// KeyPrefixLabel is the label for cache metrics, representing the key prefix.
	KeyPrefixLabel = "key_prefix"
)

// Metrics contains the Prometheus collectors for redis lookups.
type Metrics struct {
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
}

// NewMetrics creates and registers the redis lookup collectors.
func NewMetrics() Metrics {
	return Metrics{
		Hits: metrics.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hit_count",
			Help: "The number of redis lookups that found a record",
		}, []string{KeyPrefixLabel})),
		Misses: metrics.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_miss_count",
			Help: "The number of redis lookups that found no record",
		}, []string{KeyPrefixLabel})),
	}
}
