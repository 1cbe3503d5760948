package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the loader:
// HTTP traffic, cache behaviour and ingestion throughput.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	filesProcessed     *prometheus.CounterVec
	questionsPersisted *prometheus.CounterVec
	duplicatesFlagged  prometheus.Counter
	uploadDuration     prometheus.Observer

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	filesProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "markdown_files_processed_total",
		Help: "Markdown files handled per operation and outcome",
	}, []string{"operation", "outcome"})

	questionsPersisted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "questions_persisted_total",
		Help: "Question rows written to the database by outcome",
	}, []string{"outcome"})

	duplicatesFlagged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicates_flagged_total",
		Help: "Candidate questions flagged as likely duplicates",
	})

	uploadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "upload_processing_seconds",
		Help:    "End to end duration of file uploads",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		filesProcessed, questionsPersisted, duplicatesFlagged, uploadDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		filesProcessed:     filesProcessed,
		questionsPersisted: questionsPersisted,
		duplicatesFlagged:  duplicatesFlagged,
		uploadDuration:     uploadDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordFileProcessed counts one handled file for an operation such as
// "validate", "upload" or "stage".
func (m *MetricsService) RecordFileProcessed(operation string, accepted bool) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	m.filesProcessed.WithLabelValues(operation, outcome).Inc()
}

// RecordQuestionsPersisted counts rows written and rows that failed to write.
func (m *MetricsService) RecordQuestionsPersisted(successful, failed int) {
	if m == nil {
		return
	}
	if successful > 0 {
		m.questionsPersisted.WithLabelValues("success").Add(float64(successful))
	}
	if failed > 0 {
		m.questionsPersisted.WithLabelValues("failure").Add(float64(failed))
	}
}

// RecordDuplicatesFlagged counts candidates flagged by a duplicate check.
func (m *MetricsService) RecordDuplicatesFlagged(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.duplicatesFlagged.Add(float64(count))
}

// ObserveUploadProcessing tracks how long a full upload took.
func (m *MetricsService) ObserveUploadProcessing(duration time.Duration) {
	if m == nil || m.uploadDuration == nil {
		return
	}
	m.uploadDuration.Observe(duration.Seconds())
}
