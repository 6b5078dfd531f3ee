// Package metrics collects operational counters for the sync service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the instrumentation surface the rest of the service writes to.
// Components record events; how they are aggregated and exposed is this
// package's concern.
type Recorder interface {
	WebhookReceived(storeDomain, topic string)
	WebhookRejected(storeDomain, reason string)
	JobEnqueued(topic string)
	JobRetried(topic string)
	OutcomeRecorded(storeDomain, method, status string)
	OutboundCall(storeDomain, apiClass string, waited time.Duration)
	InventoryPushed(storeDomain string, count int)
	SetQueueDepth(depth int64)
}

// PrometheusRecorder implements Recorder on a dedicated Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	webhooksReceived *prometheus.CounterVec
	webhooksRejected *prometheus.CounterVec
	jobsEnqueued     *prometheus.CounterVec
	jobRetries       *prometheus.CounterVec
	syncOutcomes     *prometheus.CounterVec
	outboundCalls    *prometheus.CounterVec
	outboundWait     *prometheus.HistogramVec
	inventoryPushes  *prometheus.CounterVec
	queueDepth       prometheus.Gauge
}

// NewPrometheusRecorder creates a recorder backed by its own registry so the
// service's metrics don't collide with the default process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
	}

	r.webhooksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storebridge",
			Name:      "webhooks_received_total",
			Help:      "Webhook deliveries accepted for processing.",
		},
		[]string{"shop_domain", "topic"},
	)

	r.webhooksRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storebridge",
			Name:      "webhooks_rejected_total",
			Help:      "Webhook deliveries rejected before enqueue.",
		},
		[]string{"shop_domain", "reason"},
	)

	r.jobsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storebridge",
			Name:      "jobs_enqueued_total",
			Help:      "Jobs pushed onto the sync queue.",
		},
		[]string{"topic"},
	)

	r.jobRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storebridge",
			Name:      "job_retries_total",
			Help:      "Jobs requeued after a retryable failure.",
		},
		[]string{"topic"},
	)

	r.syncOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storebridge",
			Name:      "sync_outcomes_total",
			Help:      "Sync operations by method and recorded status.",
		},
		[]string{"shop_domain", "method", "status"},
	)

	r.outboundCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storebridge",
			Name:      "outbound_calls_total",
			Help:      "Calls made against the platform API.",
		},
		[]string{"shop_domain", "api_class"},
	)

	r.outboundWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storebridge",
			Name:      "outbound_wait_seconds",
			Help:      "Time spent waiting on the rate limiter before an outbound call.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"api_class"},
	)

	r.inventoryPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storebridge",
			Name:      "inventory_pushes_total",
			Help:      "Inventory levels pushed to the platform.",
		},
		[]string{"shop_domain"},
	)

	r.queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storebridge",
			Name:      "queue_depth",
			Help:      "Jobs currently waiting on the sync queue.",
		},
	)

	r.registry.MustRegister(
		r.webhooksReceived,
		r.webhooksRejected,
		r.jobsEnqueued,
		r.jobRetries,
		r.syncOutcomes,
		r.outboundCalls,
		r.outboundWait,
		r.inventoryPushes,
		r.queueDepth,
	)

	return r
}

func (r *PrometheusRecorder) WebhookReceived(storeDomain, topic string) {
	r.webhooksReceived.WithLabelValues(storeDomain, topic).Inc()
}

func (r *PrometheusRecorder) WebhookRejected(storeDomain, reason string) {
	r.webhooksRejected.WithLabelValues(storeDomain, reason).Inc()
}

func (r *PrometheusRecorder) JobEnqueued(topic string) {
	r.jobsEnqueued.WithLabelValues(topic).Inc()
}

func (r *PrometheusRecorder) JobRetried(topic string) {
	r.jobRetries.WithLabelValues(topic).Inc()
}

func (r *PrometheusRecorder) OutcomeRecorded(storeDomain, method, status string) {
	r.syncOutcomes.WithLabelValues(storeDomain, method, status).Inc()
}

func (r *PrometheusRecorder) OutboundCall(storeDomain, apiClass string, waited time.Duration) {
	r.outboundCalls.WithLabelValues(storeDomain, apiClass).Inc()
	r.outboundWait.WithLabelValues(apiClass).Observe(waited.Seconds())
}

func (r *PrometheusRecorder) InventoryPushed(storeDomain string, count int) {
	r.inventoryPushes.WithLabelValues(storeDomain).Add(float64(count))
}

func (r *PrometheusRecorder) SetQueueDepth(depth int64) {
	r.queueDepth.Set(float64(depth))
}

// Handler exposes the registry for scraping.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// NopRecorder discards every event. Used in tests and as a default when no
// recorder is wired.
type NopRecorder struct{}

func NewNopRecorder() NopRecorder { return NopRecorder{} }

func (NopRecorder) WebhookReceived(string, string)             {}
func (NopRecorder) WebhookRejected(string, string)             {}
func (NopRecorder) JobEnqueued(string)                         {}
func (NopRecorder) JobRetried(string)                          {}
func (NopRecorder) OutcomeRecorded(string, string, string)     {}
func (NopRecorder) OutboundCall(string, string, time.Duration) {}
func (NopRecorder) InventoryPushed(string, int)                {}
func (NopRecorder) SetQueueDepth(int64)                        {}
