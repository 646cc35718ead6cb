// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eagleeye"

// Recorder is nil-safe: a nil *Recorder drops every observation.
type Recorder struct {
	registry       *prometheus.Registry
	rollupRuns     *prometheus.CounterVec
	rollupDuration *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	captures       *prometheus.CounterVec
}

func New() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		rollupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollup_runs_total",
			Help:      "Rollup recomputations by kind and result.",
		}, []string{"kind", "result"}),
		rollupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rollup_duration_seconds",
			Help:      "Time spent recomputing one rollup.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_captures_total",
			Help:      "Public lead captures by source.",
		}, []string{"source"}),
	}
	registry.MustRegister(
		r.rollupRuns,
		r.rollupDuration,
		r.httpRequests,
		r.captures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRollup records one recompute of the given kind ("neighborhood" or "campaign").
func (r *Recorder) ObserveRollup(kind string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.rollupRuns.WithLabelValues(kind, result).Inc()
	r.rollupDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveRequest(method, route string, status int) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (r *Recorder) ObserveCapture(source string) {
	if r == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	r.captures.WithLabelValues(source).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
