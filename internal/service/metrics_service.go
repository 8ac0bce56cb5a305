package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chapterhub/event-gallery/internal/models"
)

// MetricsSnapshot is the lightweight view of process counters served by /health.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	PhotosUploaded           uint64    `json:"photosUploaded"`
	ThumbnailsGenerated      uint64    `json:"thumbnailsGenerated"`
	ThumbnailFailures        uint64    `json:"thumbnailFailures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// MetricsService owns the Prometheus registry for the gallery API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	uploadBytes     prometheus.Histogram
	uploads         *prometheus.CounterVec
	thumbnails      *prometheus.CounterVec
	thumbnailTime   prometheus.Histogram
	sweptFiles      prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	photosUploaded       uint64
	thumbnailsOK         uint64
	thumbnailsFailed     uint64
}

// NewMetricsService registers the gallery collectors. subscribers, when non-nil,
// backs a gauge of connected change stream clients.
func NewMetricsService(subscribers func() int) *MetricsService {
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
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_event_mutations_total",
			Help: "Successful event mutations by change kind",
		}, []string{"change"}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gallery_photo_upload_bytes",
			Help:    "Size of accepted photo uploads",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_photo_uploads_total",
			Help: "Photo uploads by outcome",
		}, []string{"outcome"}),
		thumbnails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_thumbnail_jobs_total",
			Help: "Thumbnail jobs by outcome",
		}, []string{"outcome"}),
		thumbnailTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gallery_thumbnail_duration_seconds",
			Help:    "Time spent rendering a thumbnail",
			Buckets: prometheus.DefBuckets,
		}),
		sweptFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gallery_swept_files_total",
			Help: "Orphaned media files removed by the sweeper",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite,
		m.cacheHitRatio, m.cacheLookups, m.mutations, m.uploadBytes, m.uploads, m.thumbnails, m.thumbnailTime, m.sweptFiles, goroutines)

	if subscribers != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gallery_stream_subscribers",
			Help: "Connected change stream clients",
		}, func() float64 {
			return float64(subscribers())
		}))
	}

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

// RecordCacheOperation records a cache lookup and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordMutation counts a committed event change.
func (m *MetricsService) RecordMutation(kind models.ChangeKind) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(string(kind)).Inc()
}

// RecordUpload counts an upload attempt; size is observed only for accepted files.
func (m *MetricsService) RecordUpload(outcome string, size int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
	if outcome == UploadAccepted {
		m.uploadBytes.Observe(float64(size))
		atomic.AddUint64(&m.photosUploaded, 1)
	}
}

// RecordThumbnail counts a finished thumbnail job.
func (m *MetricsService) RecordThumbnail(err error, duration time.Duration) {
	if m == nil {
		return
	}
	if err != nil {
		m.thumbnails.WithLabelValues("failed").Inc()
		atomic.AddUint64(&m.thumbnailsFailed, 1)
		return
	}
	m.thumbnails.WithLabelValues("generated").Inc()
	m.thumbnailTime.Observe(duration.Seconds())
	atomic.AddUint64(&m.thumbnailsOK, 1)
}

// RecordSweep counts files removed by the orphan sweeper.
func (m *MetricsService) RecordSweep(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.sweptFiles.Add(float64(removed))
}

// Snapshot returns aggregated counters for the health endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if hits+misses > 0 {
		cacheRatio = float64(hits) / float64(hits+misses)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHitRatio:            cacheRatio,
		PhotosUploaded:           atomic.LoadUint64(&m.photosUploaded),
		ThumbnailsGenerated:      atomic.LoadUint64(&m.thumbnailsOK),
		ThumbnailFailures:        atomic.LoadUint64(&m.thumbnailsFailed),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
