// Package metrics holds the collector's Prometheus instruments.
//
// All instruments live on a dedicated registry so tests can build
// independent sets. Every method is safe on a nil *Metrics, which lets
// components run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "collector"

// Ingest results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Watcher pass outcomes.
const (
	PassUnchanged = "unchanged"
	PassConverted = "converted"
	PassFailed    = "failed"
)

// Metrics is the set of instruments exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	eventsIngested  *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	watcherPasses   *prometheus.CounterVec
	documentsFailed prometheus.Counter
}

// New creates the instruments and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ingested_total",
			Help:      "Events received on the collect endpoint, by storage result.",
		}, []string{"result"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		watcherPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watcher_passes_total",
			Help:      "Document watcher polls, by outcome.",
		}, []string{"outcome"}),
		documentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watcher_documents_failed_total",
			Help:      "Documents the watcher could not convert.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.eventsIngested,
		m.requestsTotal,
		m.requestDuration,
		m.watcherPasses,
		m.documentsFailed,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// EventIngested counts one stored (ResultOK) or failed (ResultError) event.
func (m *Metrics) EventIngested(result string) {
	if m == nil {
		return
	}
	m.eventsIngested.WithLabelValues(result).Inc()
}

// ObserveRequest records one served HTTP request. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// WatcherPass counts one watcher poll with the given outcome.
func (m *Metrics) WatcherPass(outcome string) {
	if m == nil {
		return
	}
	m.watcherPasses.WithLabelValues(outcome).Inc()
}

// DocumentFailed counts one document conversion failure.
func (m *Metrics) DocumentFailed() {
	if m == nil {
		return
	}
	m.documentsFailed.Inc()
}
