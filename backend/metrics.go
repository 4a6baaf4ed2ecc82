package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "campus_connect"

// Metrics holds the collectors of one server on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	matchScores         prometheus.Histogram
	matchCandidates     prometheus.Histogram
	feedClients         prometheus.Gauge
}

// NewMetrics registers all collectors on a new registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		matchScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "match_score",
			Help:      "Scores returned by match requests.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		matchCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "match_candidates",
			Help:      "Number of results returned per match request.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "match_feed_clients",
			Help:      "Open live match feed connections.",
		}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpRequestDuration,
		m.matchScores,
		m.matchCandidates,
		m.feedClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveMatches records the scores of one match response.
func (m *Metrics) ObserveMatches(scores []int) {
	m.matchCandidates.Observe(float64(len(scores)))
	for _, s := range scores {
		m.matchScores.Observe(float64(s))
	}
}

// instrument wraps next with request counting and latency tracking.
func (m *Metrics) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
