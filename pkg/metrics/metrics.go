// Package metrics 汇总服务的 Prometheus 指标，/metrics 由路由层通过 promhttp 暴露
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 接口
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photox_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// 入库流水线
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photox_ingest_total",
			Help: "Total number of ingested images by result",
		},
		[]string{"result"}, // success, failed
	)

	IngestStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photox_ingest_stage_duration_seconds",
			Help:    "Duration of each ingestion pipeline stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"}, // scratch, colors, classify, upload, persist, album
	)

	IngestCompensations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photox_ingest_compensations_total",
			Help: "Total number of uploaded objects deleted because persisting the image failed",
		},
	)

	// 视觉分类
	ClassificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photox_classification_total",
			Help: "Total number of vision classification calls by outcome",
		},
		[]string{"outcome", "reason"}, // outcome: ok, fallback
	)

	ClassificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photox_classification_duration_seconds",
			Help:    "Duration of vision classification calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photox_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// 对象存储
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photox_storage_operations_total",
			Help: "Total number of object store operations",
		},
		[]string{"operation", "result"},
	)

	// 缓存
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photox_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photox_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// 通知
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photox_notifications_created_total",
			Help: "Total number of notifications created by kind",
		},
		[]string{"kind"},
	)
)

// RecordAPIRequest 记录一次 HTTP 请求
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordIngest 记录一次入库结果
func RecordIngest(err error) {
	if err != nil {
		IngestTotal.WithLabelValues("failed").Inc()
		return
	}
	IngestTotal.WithLabelValues("success").Inc()
}

// ObserveStage 记录流水线阶段耗时，用法: defer metrics.ObserveStage("upload", time.Now())
func ObserveStage(stage string, start time.Time) {
	IngestStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordClassification 记录分类结果，reason 为空表示成功
func RecordClassification(reason string, duration time.Duration) {
	ClassificationDuration.Observe(duration.Seconds())
	if reason == "" {
		ClassificationTotal.WithLabelValues("ok", "").Inc()
		return
	}
	ClassificationTotal.WithLabelValues("fallback", reason).Inc()
}

// RecordStorage 记录对象存储操作
func RecordStorage(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StorageOperations.WithLabelValues(operation, result).Inc()
}

// RecordCache 记录缓存命中情况
func RecordCache(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}
