package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-crm-api/internal/models"
)

// Resync outcomes recorded by ObserveResync.
const (
	ResyncOutcomeChanged      = "changed"
	ResyncOutcomeUnchanged    = "unchanged"
	ResyncOutcomeConflict     = "conflict"
	ResyncOutcomeInconsistent = "inconsistent"
	ResyncOutcomeError        = "error"
)

// MetricsService owns the Prometheus registry of the service.
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
	resyncTotal     *prometheus.CounterVec
	resyncAttempts  prometheus.Histogram
	versionConflict prometheus.Counter
	dossierVerdicts *prometheus.CounterVec
	dossierWarnings *prometheus.CounterVec
	exportsTotal    *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors.
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
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
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

	resyncTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_resync_total",
		Help: "Lifecycle resyncs by outcome",
	}, []string{"outcome"})

	resyncAttempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lifecycle_resync_attempts",
		Help:    "Read-classify-write attempts needed per resync",
		Buckets: []float64{1, 2, 3, 5, 8},
	})

	versionConflict := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_version_conflicts_total",
		Help: "Optimistic lock conflicts on person rows",
	})

	dossierVerdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dossier_evaluations_total",
		Help: "Dossier evaluations by program tier and verdict",
	}, []string{"program_tier", "compliant"})

	dossierWarnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dossier_integrity_warnings_total",
		Help: "Data integrity warnings raised while evaluating dossiers",
	}, []string{"code"})

	exportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_exports_total",
		Help: "Compliance audit exports generated",
	}, []string{"scope", "format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		resyncTotal, resyncAttempts, versionConflict, dossierVerdicts, dossierWarnings, exportsTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		resyncTotal:     resyncTotal,
		resyncAttempts:  resyncAttempts,
		versionConflict: versionConflict,
		dossierVerdicts: dossierVerdicts,
		dossierWarnings: dossierWarnings,
		exportsTotal:    exportsTotal,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records a cache lookup and updates the hit ratio.
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

// ObserveResync records the outcome of one resync and how many attempts it took.
func (m *MetricsService) ObserveResync(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.resyncTotal.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		m.resyncAttempts.Observe(float64(attempts))
	}
}

// RecordVersionConflict counts one lost optimistic write.
func (m *MetricsService) RecordVersionConflict() {
	if m == nil {
		return
	}
	m.versionConflict.Inc()
}

// ObserveDossier records a dossier verdict and its integrity warnings.
func (m *MetricsService) ObserveDossier(report models.DossierReport) {
	if m == nil {
		return
	}
	m.dossierVerdicts.WithLabelValues(string(report.ProgramTier), fmt.Sprintf("%t", report.Compliant)).Inc()
	for _, warning := range report.Warnings {
		m.dossierWarnings.WithLabelValues(string(warning.Code)).Inc()
	}
}

// RecordExport counts a generated compliance export.
func (m *MetricsService) RecordExport(scope models.ComplianceExportScope, format models.ExportFormat) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(string(scope), string(format)).Inc()
}
