package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeInvalid       = "invalid_payload"
	OutcomeUpstreamError = "upstream_error"
	OutcomeStoreError    = "store_error"
	OutcomeConfigError   = "config_error"
)

// Recorder is the metrics surface used by the services and handlers.
type Recorder interface {
	ObserveGeneration(kind, plan, outcome string)
	ObserveRefund(kind string)
	ObserveCatalogRefresh(source, result string)
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

type recorder struct {
	generations      *prometheus.CounterVec
	refunds          *prometheus.CounterVec
	catalogRefreshes *prometheus.CounterVec
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// NewRecorder registers the application collectors on registry
func NewRecorder(registry *prometheus.Registry) Recorder {
	factory := promauto.With(registry)

	return &recorder{
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generation_requests_total",
				Help: "Generation requests by kind, resolved plan and outcome",
			},
			[]string{"kind", "plan", "outcome"},
		),
		refunds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usage_refunds_total",
				Help: "Usage units released after an upstream failure",
			},
			[]string{"kind"},
		),
		catalogRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_catalog_refreshes_total",
				Help: "Model catalog refreshes by source and result",
			},
			[]string{"source", "result"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (r *recorder) ObserveGeneration(kind, plan, outcome string) {
	r.generations.WithLabelValues(kind, plan, outcome).Inc()
}

func (r *recorder) ObserveRefund(kind string) {
	r.refunds.WithLabelValues(kind).Inc()
}

func (r *recorder) ObserveCatalogRefresh(source, result string) {
	r.catalogRefreshes.WithLabelValues(source, result).Inc()
}

func (r *recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

type nopRecorder struct{}

// NewNop returns a Recorder that drops everything.
func NewNop() Recorder { return nopRecorder{} }

func (nopRecorder) ObserveGeneration(kind, plan, outcome string)                           {}
func (nopRecorder) ObserveRefund(kind string)                                              {}
func (nopRecorder) ObserveCatalogRefresh(source, result string)                            {}
func (nopRecorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {}
