package httpserver

import (
	"net/http"

	"github.com/ndajr/urlshortener-kv/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// HandlerLabel names the route a request was served by.
	HandlerLabel = "handler"
	// OutcomeLabel is the result of a shorten request.
	OutcomeLabel = "outcome"

	OutcomeCreated  = "created"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	Requests  *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Shortened *prometheus.CounterVec
}

func NewMetrics() Metrics {
	return Metrics{
		Requests: metrics.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests by handler, method and status code.",
		}, []string{HandlerLabel, "method", "code"})),
		Duration: metrics.Register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "The latency of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{HandlerLabel, "method"})),
		Shortened: metrics.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shorten_total",
			Help: "The number of shorten requests by outcome.",
		}, []string{OutcomeLabel})),
	}
}

// instrument wraps h with request counting and latency observation under name.
func (m Metrics) instrument(name string, h http.Handler) http.Handler {
	labels := prometheus.Labels{HandlerLabel: name}
	return promhttp.InstrumentHandlerDuration(m.Duration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(m.Requests.MustCurryWith(labels), h))
}
