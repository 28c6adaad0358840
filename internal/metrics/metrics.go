// Package metrics holds the Prometheus collectors for the analysis pipeline.
// Collectors live on a private registry so tests and multiple servers in one
// process never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "phishscope"

// Outcome labels.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeOK        = "ok"
	OutcomeError     = "error"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	analyses           *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	titleFailures      prometheus.Counter
	tlsStatus          *prometheus.CounterVec
	feedFetches        *prometheus.CounterVec
	batchInFlight      prometheus.Gauge
	httpRequests       *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "URL analyses by final outcome.",
		}, []string{"outcome"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of text-generation calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"outcome"}),
		titleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "title_fetch_failures_total",
			Help:      "Page title fetches that ended in a fetch error.",
		}),
		tlsStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tls_status_total",
			Help:      "TLS inspection results by status kind.",
		}, []string{"status"}),
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Feed downloads by outcome.",
		}, []string{"outcome"}),
		batchInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_analyses_in_flight",
			Help:      "Analyses currently running inside batches.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"method", "route", "code"}),
	}

	m.registry.MustRegister(
		m.analyses,
		m.generationDuration,
		m.titleFailures,
		m.tlsStatus,
		m.feedFetches,
		m.batchInFlight,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAnalysis counts one finished analysis.
func (m *Metrics) ObserveAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
}

// ObserveGeneration records the latency of one generation call.
func (m *Metrics) ObserveGeneration(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeError
	}
	m.generationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveTitleFailure counts a failed title fetch.
func (m *Metrics) ObserveTitleFailure() {
	if m == nil {
		return
	}
	m.titleFailures.Inc()
}

// ObserveTLSStatus counts one TLS inspection by kind.
func (m *Metrics) ObserveTLSStatus(kind string) {
	if m == nil {
		return
	}
	m.tlsStatus.WithLabelValues(kind).Inc()
}

// ObserveFeedFetch counts one feed download.
func (m *Metrics) ObserveFeedFetch(ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeError
	}
	m.feedFetches.WithLabelValues(outcome).Inc()
}

// BatchStarted and BatchFinished track in-flight batch analyses.
func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.batchInFlight.Inc()
}

func (m *Metrics) BatchFinished() {
	if m == nil {
		return
	}
	m.batchInFlight.Dec()
}

// ObserveHTTPRequest counts one API request.
func (m *Metrics) ObserveHTTPRequest(method, route, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, code).Inc()
}
