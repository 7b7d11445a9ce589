// Package metrics defines the Prometheus collectors used by ClauseCop and
// exposes an HTTP handler for scraping. All recording methods are safe to call
// on a nil *Metrics so components can run without instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	DocumentsProcessed   *prometheus.CounterVec
	ProcessingDuration   prometheus.Histogram
	ClausesPerDocument   prometheus.Histogram
	ClausesDiscarded     prometheus.Counter
	PartitionRequests    *prometheus.CounterVec
	PartitionLatency     prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Passing nil
// registers with the global default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocumentsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_processed_total",
				Help: "Processing runs by resulting document status (ready, failed).",
			},
			[]string{"status"},
		),
		ProcessingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "processing_duration_seconds",
				Help:    "End-to-end duration of a document processing run.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		ClausesPerDocument: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clauses_per_document",
				Help:    "Number of clauses persisted per successful run.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		ClausesDiscarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clauses_discarded_total",
				Help: "Clause drafts dropped by the minimum-length gate.",
			},
		),
		PartitionRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partition_requests_total",
				Help: "Partition service calls by outcome (ok, error, timeout, cancelled, rejected).",
			},
			[]string{"outcome"},
		),
		PartitionLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "partition_latency_seconds",
				Help:    "Partition service latency in seconds.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clause_cache_hits_total",
				Help: "Total number of clause cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clause_cache_misses_total",
				Help: "Total number of clause cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocumentsProcessed,
		m.ProcessingDuration,
		m.ClausesPerDocument,
		m.ClausesDiscarded,
		m.PartitionRequests,
		m.PartitionLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveRun records the outcome of one processing run.
func (m *Metrics) ObserveRun(status string, clauses, discarded int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsProcessed.WithLabelValues(status).Inc()
	m.ProcessingDuration.Observe(elapsed.Seconds())
	if status == "ready" {
		m.ClausesPerDocument.Observe(float64(clauses))
	}
	m.ClausesDiscarded.Add(float64(discarded))
}

// ObservePartition records one partition service call.
func (m *Metrics) ObservePartition(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PartitionRequests.WithLabelValues(outcome).Inc()
	m.PartitionLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// SetBreakerState publishes a circuit breaker state as its numeric value.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
