package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the shared Prometheus registerer every process registers
// its collectors against. Using one explicit registry instead of the
// global default keeps test processes from panicking on duplicate
// registration when multiple packages are exercised in the same binary.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// IngestMessagesTotal counts every ingest attempt by outcome
	// (accepted or a quarantine reason), per spec.md §4.2.
	IngestMessagesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_messages_total",
		Help: "Total ingest envelopes processed, labeled by tenant and result.",
	}, []string{"tenant", "result"})

	// IngestQueueDepth tracks the in-process backpressure queue depth.
	IngestQueueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_queue_depth",
		Help: "Current depth of the in-process ingest queue.",
	})

	// IngestBatchWriteSeconds times each batch-writer flush.
	IngestBatchWriteSeconds = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_batch_write_seconds",
		Help:    "Duration of each telemetry batch flush.",
		Buckets: prometheus.DefBuckets,
	})

	// EvaluatorRulesEvaluatedTotal counts rule evaluations per tick.
	EvaluatorRulesEvaluatedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "evaluator_rules_evaluated_total",
		Help: "Total alert rule evaluations, labeled by tenant.",
	}, []string{"tenant"})

	// EvaluatorAlertsCreatedTotal counts new OPENED alerts.
	EvaluatorAlertsCreatedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "evaluator_alerts_created_total",
		Help: "Total alerts opened, labeled by tenant.",
	}, []string{"tenant"})

	// DeliveryJobsFailedTotal counts jobs that transitioned to FAILED.
	DeliveryJobsFailedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_jobs_failed_total",
		Help: "Total notification jobs that reached a permanent failure, labeled by tenant.",
	}, []string{"tenant"})

	// DeliveryDLQTotal counts DeadLetter rows written.
	DeliveryDLQTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "delivery_dlq_total",
		Help: "Total notification jobs written to the dead-letter table.",
	})

	// DeliveryChannelLatencySeconds times each delivery attempt, per
	// channel type.
	DeliveryChannelLatencySeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "delivery_channel_latency_seconds",
		Help:    "Delivery attempt latency, labeled by channel type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel_type"})
)

// Handler returns the http.Handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
