package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
)

// MetricsSnapshot is a JSON friendly view of the process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AlertRuns                uint64    `json:"alert_runs"`
	NotificationsTotal       uint64    `json:"notifications_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService owns the Prometheus registry plus atomic totals for snapshots.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	alertRuns       *prometheus.CounterVec
	alertDuration   prometheus.Histogram
	alertOutcomes   *prometheus.CounterVec
	exportJobs      *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	alertRunCount        uint64
	notificationCount    uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		alertRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "absence_alert_runs_total",
			Help: "Absence alert evaluations by input source",
		}, []string{"source"}),
		alertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "absence_alert_run_duration_seconds",
			Help:    "Wall time of absence alert evaluations",
			Buckets: prometheus.DefBuckets,
		}),
		alertOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "absence_alert_rows_total",
			Help: "Alert rows by outcome",
		}, []string{"outcome"}),
		exportJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "absence_alert_export_jobs_total",
			Help: "Export jobs by terminal status",
		}, []string{"status"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite,
		m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.dbQueryDuration,
		m.alertRuns, m.alertDuration, m.alertOutcomes, m.exportJobs,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a lookup and refreshes the hit ratio.
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
}

// RecordAlertRun counts one evaluation and its row outcomes.
func (m *MetricsService) RecordAlertRun(source string, summary models.RunSummary, duration time.Duration) {
	if m == nil {
		return
	}
	m.alertRuns.WithLabelValues(source).Inc()
	m.alertDuration.Observe(duration.Seconds())
	m.alertOutcomes.WithLabelValues("notified").Add(float64(summary.Notifications))
	m.alertOutcomes.WithLabelValues("invalid_email").Add(float64(summary.InvalidEmails))
	m.alertOutcomes.WithLabelValues("unmatched").Add(float64(summary.UnmatchedStudents))
	atomic.AddUint64(&m.alertRunCount, 1)
	atomic.AddUint64(&m.notificationCount, uint64(summary.Notifications))
}

// RecordExportJob counts an export job reaching a terminal status.
func (m *MetricsService) RecordExportJob(status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(string(status)).Inc()
}

// Snapshot returns aggregated totals for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	snap := MetricsSnapshot{
		RequestsTotal:      requests,
		CacheHits:          hits,
		CacheMisses:        misses,
		DBQueryCount:       atomic.LoadUint64(&m.dbQueryCount),
		AlertRuns:          atomic.LoadUint64(&m.alertRunCount),
		NotificationsTotal: atomic.LoadUint64(&m.notificationCount),
		Goroutines:         runtime.NumGoroutine(),
		GeneratedAt:        time.Now().UTC(),
	}
	if hits+misses > 0 {
		snap.CacheHitRatio = float64(hits) / float64(hits+misses)
	}
	if requests > 0 {
		snap.AverageRequestDurationMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	return snap
}
