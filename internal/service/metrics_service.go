package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
)

// timedTotal accumulates an event count and its summed duration.
type timedTotal struct {
	count atomic.Uint64
	nanos atomic.Uint64
}

func (t *timedTotal) add(d time.Duration) {
	t.count.Add(1)
	if d > 0 {
		t.nanos.Add(uint64(d))
	}
}

func (t *timedTotal) averageMs() float64 {
	n := t.count.Load()
	if n == 0 {
		return 0
	}
	return float64(t.nanos.Load()) / float64(n) / float64(time.Millisecond)
}

// MetricsService owns the Prometheus registry of the gradebook API and keeps atomic totals for JSON snapshots.
type MetricsService struct {
	handler http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	gradeWrites     *prometheus.CounterVec
	exports         *prometheus.CounterVec
	importRows      *prometheus.CounterVec

	requests     timedTotal
	queries      timedTotal
	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64
	gradeWriteN  atomic.Uint64
	exportN      atomic.Uint64
	importedRows atomic.Uint64
}

func histogram(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: prometheus.DefBuckets}, labels)
}

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

// NewMetricsService registers the gradebook collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		requestDuration: histogram("gradebook_http_request_duration_seconds", "Duration of HTTP requests in seconds", "method", "path", "status"),
		requestTotal:    counter("gradebook_http_requests_total", "Total number of HTTP requests", "method", "path", "status"),
		cacheLatency:    prometheus.NewHistogram(prometheus.HistogramOpts{Name: "gradebook_cache_latency_seconds", Help: "Latency for analytics cache lookups", Buckets: prometheus.DefBuckets}),
		cacheWrite:      prometheus.NewHistogram(prometheus.HistogramOpts{Name: "gradebook_cache_write_seconds", Help: "Latency for analytics cache writes", Buckets: prometheus.DefBuckets}),
		cacheHitRatio:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "gradebook_cache_hit_ratio", Help: "Ratio of cache hits to total cache lookups"}),
		cacheLookups:    counter("gradebook_cache_lookups_total", "Analytics cache lookups by result", "result"),
		dbQueryDuration: histogram("gradebook_db_query_duration_seconds", "Duration of gradebook queries", "query"),
		gradeWrites:     counter("gradebook_grade_writes_total", "Grade sheet mutations by kind and outcome", "kind", "outcome"),
		exports:         counter("gradebook_exports_total", "Rendered gradebook exports by format", "format"),
		importRows:      counter("gradebook_import_rows_total", "Imported grade sheet rows by outcome", "outcome"),
	}
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gradebook_goroutines",
		Help: "Number of live goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheLookups,
		m.dbQueryDuration, goroutines,
		m.gradeWrites, m.exports, m.importRows,
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

// ObserveHTTPRequest records a routed request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
	m.requests.add(duration)
}

// RecordCacheOperation records an analytics cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Add(1)
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheMisses.Add(1)
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
	m.cacheHitRatio.Set(m.hitRatio())
}

func (m *MetricsService) hitRatio() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// ObserveCacheWrite tracks the duration of a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records gradebook query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.queries.add(duration)
}

// ObserveGradeWrite counts a grade sheet mutation such as "grades" or "status".
func (m *MetricsService) ObserveGradeWrite(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	} else {
		m.gradeWriteN.Add(1)
	}
	m.gradeWrites.WithLabelValues(kind, outcome).Inc()
}

// ObserveExport counts a rendered export.
func (m *MetricsService) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
	m.exportN.Add(1)
}

// ObserveImportRows adds imported row counts per outcome.
func (m *MetricsService) ObserveImportRows(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importRows.WithLabelValues(outcome).Add(float64(n))
	if outcome != "failed" {
		m.importedRows.Add(uint64(n))
	}
}

// Snapshot returns aggregated totals for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	return models.SystemMetrics{
		CacheHitRatio:            m.hitRatio(),
		CacheHits:                m.cacheHits.Load(),
		CacheMisses:              m.cacheMisses.Load(),
		RequestsTotal:            m.requests.count.Load(),
		AverageRequestDurationMs: m.requests.averageMs(),
		DBQueryCount:             m.queries.count.Load(),
		AverageDBQueryDurationMs: m.queries.averageMs(),
		GradeWrites:              m.gradeWriteN.Load(),
		Exports:                  m.exportN.Load(),
		ImportedRows:             m.importedRows.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
