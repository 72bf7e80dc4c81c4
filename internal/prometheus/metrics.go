package prometheus

import "github.com/prometheus/client_golang/prometheus"

const (
	webhookDurationBucketStart  = 0.01
	webhookDurationBucketFactor = 2.0
	webhookDurationBucketCount  = 12
)

const (
	minioDurationBucketStart  = 0.05
	minioDurationBucketFactor = 2
	minioDurationBucketCount  = 10
)

const (
	OutcomeOK         = "ok"
	OutcomeBadRequest = "bad_request"
	OutcomeFailed     = "failed"
)

var WebhookDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "webhook_duration_seconds",
		Help: "Time taken to process one webhook delivery",
		Buckets: prometheus.ExponentialBuckets(
			webhookDurationBucketStart,
			webhookDurationBucketFactor,
			webhookDurationBucketCount,
		),
	},
	[]string{"outcome"},
)

var PipelineStageTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipeline_stage_total",
		Help: "Pipeline stage results per delivery",
	},
	[]string{"stage", "result"},
)

var MinioOperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "minio_operation_duration_seconds",
		Help: "Time taken by MinIO operations, retries included",
		Buckets: prometheus.ExponentialBuckets(
			minioDurationBucketStart,
			minioDurationBucketFactor,
			minioDurationBucketCount,
		),
	},
	[]string{"operation"},
)

var KafkaPublishTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_total",
		Help: "Outcome events published to Kafka",
	},
	[]string{"result"},
)

var DeadLetterTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dead_letter_total",
		Help: "Dead-letter writes and replays",
	},
	[]string{"action"},
)

var CircuitOpenTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "circuit_open_total",
		Help: "Circuit breakers that opened, by service",
	},
	[]string{"service"},
)

func init() {
	prometheus.MustRegister(WebhookDuration)
	prometheus.MustRegister(PipelineStageTotal)
	prometheus.MustRegister(MinioOperationDuration)
	prometheus.MustRegister(KafkaPublishTotal)
	prometheus.MustRegister(DeadLetterTotal)
	prometheus.MustRegister(CircuitOpenTotal)
}

// ObserveStage matches webhook.StageObserver.
func ObserveStage(stage, result string) {
	PipelineStageTotal.WithLabelValues(stage, result).Inc()
}
