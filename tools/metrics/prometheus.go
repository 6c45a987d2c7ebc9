// Package metrics records pipeline and HTTP metrics on a private Prometheus
// registry and offers small statistical helpers for reports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockwave"

// Recorder collects the metrics of one process. A nil *Recorder records
// nothing, so components can hold one unconditionally.
type Recorder struct {
	registry *prometheus.Registry

	symbols       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	graphEdges    prometheus.Histogram
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		symbols: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "symbols_total",
				Help:      "Symbols processed, by outcome",
			},
			[]string{"status"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "symbol_failures_total",
				Help:      "Symbols dropped from a batch, by reason",
			},
			[]string{"reason"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		graphEdges: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_edges",
				Help:      "Edges of each similarity graph built",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.symbols, r.failures, r.stageDuration, r.graphEdges, r.requests, r.latency,
	)
	return r
}

func (r *Recorder) SymbolProcessed() {
	if r == nil {
		return
	}
	r.symbols.WithLabelValues("ok").Inc()
}

func (r *Recorder) SymbolFailed(reason string) {
	if r == nil {
		return
	}
	r.symbols.WithLabelValues("failed").Inc()
	r.failures.WithLabelValues(reason).Inc()
}

func (r *Recorder) ObserveStage(stage string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveEdges(edges int) {
	if r == nil {
		return
	}
	r.graphEdges.Observe(float64(edges))
}

// ObserveRequest records one served request. Route should be the matched
// route pattern, not the raw path.
func (r *Recorder) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.latency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
