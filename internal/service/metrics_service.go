package service

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Course sync outcomes.
const (
	OutcomeSynced  = "synced"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// MetricsSnapshot is a point-in-time summary served next to the health check.
type MetricsSnapshot struct {
	CacheHitRatio    float64   `json:"cache_hit_ratio"`
	CacheHits        uint64    `json:"cache_hits"`
	CacheMisses      uint64    `json:"cache_misses"`
	RequestsTotal    uint64    `json:"requests_total"`
	CoursesSynced    uint64    `json:"courses_synced"`
	CoursesFailed    uint64    `json:"courses_failed"`
	UpstreamFailures uint64    `json:"upstream_failures"`
	Goroutines       int       `json:"goroutines"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface, the cache, the sync engine and both upstream collaborators.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	courseSyncs      *prometheus.CounterVec
	gradeRecords     *prometheus.CounterVec
	syncRunDuration  *prometheus.HistogramVec
	upstreamCalls    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
	syncedCount    uint64
	failedCount    uint64
	upstreamFailed uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "group", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "group", "path", "status"})

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

	courseSyncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gradestats_course_syncs_total",
		Help: "Courses processed by sync runs, by outcome",
	}, []string{"outcome"})

	gradeRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gradestats_grade_records_total",
		Help: "Normalized grade records, by resolver decision",
	}, []string{"decision"})

	syncRunDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gradestats_sync_run_duration_seconds",
		Help:    "Duration of sync runs",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200},
	}, []string{"scope"})

	upstreamCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gradestats_upstream_requests_total",
		Help: "Outbound requests to the statistics API and course pages",
	}, []string{"source", "outcome"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gradestats_upstream_request_duration_seconds",
		Help:    "Duration of outbound requests including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		courseSyncs, gradeRecords, syncRunDuration, upstreamCalls, upstreamDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		courseSyncs:      courseSyncs,
		gradeRecords:     gradeRecords,
		syncRunDuration:  syncRunDuration,
		upstreamCalls:    upstreamCalls,
		upstreamDuration: upstreamDuration,
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

// ObserveHTTPRequest records request metrics under the route group and template.
func (m *MetricsService) ObserveHTTPRequest(method, group, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, group, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, group, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveCourseSync counts one processed course.
func (m *MetricsService) ObserveCourseSync(outcome string) {
	if m == nil {
		return
	}
	m.courseSyncs.WithLabelValues(outcome).Inc()
	switch outcome {
	case OutcomeSynced:
		atomic.AddUint64(&m.syncedCount, 1)
	case OutcomeFailed:
		atomic.AddUint64(&m.failedCount, 1)
	}
}

// ObserveGradeRecords counts resolver decisions for one course.
func (m *MetricsService) ObserveGradeRecords(written, rejected int) {
	if m == nil {
		return
	}
	m.gradeRecords.WithLabelValues("admitted").Add(float64(written))
	m.gradeRecords.WithLabelValues("rejected").Add(float64(rejected))
}

// ObserveSyncRun records the duration of a finished run.
func (m *MetricsService) ObserveSyncRun(scope string, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncRunDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

// ObserveUpstreamCall implements httpclient.Observer.
func (m *MetricsService) ObserveUpstreamCall(source, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(source, outcome).Inc()
	m.upstreamDuration.WithLabelValues(source).Observe(duration.Seconds())
	if outcome == "error" || strings.HasPrefix(outcome, "5") {
		atomic.AddUint64(&m.upstreamFailed, 1)
	}
}

// Snapshot returns aggregated counters for the health endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return MetricsSnapshot{
		CacheHitRatio:    ratio,
		CacheHits:        hits,
		CacheMisses:      misses,
		RequestsTotal:    atomic.LoadUint64(&m.requestCount),
		CoursesSynced:    atomic.LoadUint64(&m.syncedCount),
		CoursesFailed:    atomic.LoadUint64(&m.failedCount),
		UpstreamFailures: atomic.LoadUint64(&m.upstreamFailed),
		Goroutines:       runtime.NumGoroutine(),
		GeneratedAt:      time.Now().UTC(),
	}
}
