package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label names.
const (
	labelMethod   = "method"
	labelEndpoint = "endpoint"
	labelStatus   = "status"
	labelKind     = "kind"
	labelReason   = "reason"
	labelOutcome  = "outcome"
	labelSource   = "source"
	labelProvider = "provider"
	labelResult   = "result"
)

// httpLatencyBuckets spans fast health checks to slow platform calls.
var httpLatencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Prometheus records metrics into its own registry and serves them on
// Handler.
type Prometheus struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	actions          *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	connects         *prometheus.CounterVec
	upgrades         *prometheus.CounterVec
	externalFailures *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
}

// NewPrometheus creates a collector with Go runtime and process metrics
// registered alongside the service metrics.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tubepost_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{labelMethod, labelEndpoint, labelStatus}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tubepost_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: httpLatencyBuckets,
		}, []string{labelMethod, labelEndpoint}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tubepost_actions_dispatched_total",
			Help: "Comments and live chat messages posted.",
		}, []string{labelKind}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tubepost_actions_rejected_total",
			Help: "Send attempts refused by the ledger or the platform.",
		}, []string{labelKind, labelReason}),
		connects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tubepost_connects_total",
			Help: "Completed channel connect flows.",
		}, []string{labelOutcome}),
		upgrades: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tubepost_plan_upgrades_total",
			Help: "Plan upgrades by payment source.",
		}, []string{labelSource}),
		externalFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tubepost_external_failures_total",
			Help: "Failed calls to external providers.",
		}, []string{labelProvider, labelReason}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tubepost_lookup_cache_total",
			Help: "Lookup cache hits and misses.",
		}, []string{labelResult}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

func (p *Prometheus) RecordRequest(method, endpoint, status string, duration time.Duration) {
	p.requests.WithLabelValues(method, endpoint, status).Inc()
	p.requestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (p *Prometheus) RecordAction(kind string) {
	p.actions.WithLabelValues(kind).Inc()
}

func (p *Prometheus) RecordRejection(kind, reason string) {
	p.rejections.WithLabelValues(kind, reason).Inc()
}

func (p *Prometheus) RecordConnect(outcome string) {
	p.connects.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) RecordUpgrade(source string) {
	p.upgrades.WithLabelValues(source).Inc()
}

func (p *Prometheus) RecordExternalFailure(provider, reason string) {
	p.externalFailures.WithLabelValues(provider, reason).Inc()
}

func (p *Prometheus) RecordCacheHit(hit bool) {
	p.cacheLookups.WithLabelValues(strconv.FormatBool(hit)).Inc()
}

var _ Collector = (*Prometheus)(nil)
