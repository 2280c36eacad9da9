package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hook 调用计数
	HookInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_hook_invocations_total",
			Help: "Store mutation hooks received, by event kind and whether the pipeline ran",
		},
		[]string{"event", "result"}, // result: handled, ignored, failed
	)

	// 通知投递结果计数
	DeliveryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_delivery_total",
			Help: "Notification deliveries by outcome",
		},
		[]string{"outcome"}, // outcome: success 或 model.ClassifyError 的标签
	)

	// 通知 API 调用延迟（毫秒）
	DeliveryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_delivery_latency_ms",
			Help:    "Notification API call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~5s
		},
		[]string{"status"},
	)

	// 凭证解析计数
	CredentialLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_credential_lookups_total",
			Help: "Credential resolutions by strategy, source document and result",
		},
		[]string{"strategy", "source", "result"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)

	// 重复事件计数
	DuplicateEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_duplicate_events_total",
			Help: "Mutation events skipped because their id was already processed",
		},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

// RecordHook 记录 hook 调用
func RecordHook(event, result string) {
	HookInvocations.WithLabelValues(event, result).Inc()
}

// RecordDelivery 记录一次投递的结果
func RecordDelivery(outcome string) {
	DeliveryCount.WithLabelValues(outcome).Inc()
}

// RecordDeliveryLatency 记录通知 API 调用延迟
func RecordDeliveryLatency(status string, duration time.Duration) {
	DeliveryLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// RecordCredentialLookup 记录凭证解析
func RecordCredentialLookup(strategy, source, result string) {
	CredentialLookups.WithLabelValues(strategy, source, result).Inc()
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// IncrementDuplicateEvents 增加重复事件计数
func IncrementDuplicateEvents() {
	DuplicateEvents.Inc()
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
