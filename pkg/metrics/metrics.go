package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 图片上传延迟（毫秒）
	UploadLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_upload_latency_ms",
			Help:    "Object storage upload latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10), // 50ms to ~25s
		},
		[]string{"status"},
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
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 健康度分级计数
	HealthClassifiedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_health_classified_count",
			Help: "Total number of project health classifications",
		},
		[]string{"tier"}, // tier: green, amber, red
	)

	// Store 状态迁移计数
	StoreTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_store_transition_count",
			Help: "Total number of gallery store transitions",
		},
		[]string{"transition", "outcome"}, // outcome: requested, committed, failed, rejected
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordUploadLatency 记录上传延迟
func RecordUploadLatency(status string, duration time.Duration) {
	UploadLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(sql string, _ time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementHealthClassified 增加健康度分级计数
func IncrementHealthClassified(tier string) {
	HealthClassifiedCount.WithLabelValues(tier).Inc()
}

// IncrementStoreTransition 增加 store 状态迁移计数
func IncrementStoreTransition(transition, outcome string) {
	StoreTransitionCount.WithLabelValues(transition, outcome).Inc()
}
