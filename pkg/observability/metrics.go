package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Pipeline metrics
	SyncTotal      *prometheus.CounterVec
	SyncDuration   *prometheus.HistogramVec
	ArtifactWrites *prometheus.CounterVec
	MergeEntries   *prometheus.GaugeVec

	// Asset store metrics
	AssetCacheHits   prometheus.Counter
	AssetCacheMisses prometheus.Counter

	// Watcher metrics
	WatchEventsTotal *prometheus.CounterVec

	// Status server metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		SyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cog_sync_total",
				Help: "Total number of pipeline runs per product",
			},
			[]string{"product", "status"},
		),
		SyncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cog_sync_duration_seconds",
				Help:    "Pipeline operation duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		ArtifactWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cog_artifact_writes_total",
				Help: "Generated artifact writes by result",
			},
			[]string{"artifact", "result"},
		),
		MergeEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cog_merge_entries",
				Help: "Entries in the last merged native configuration",
			},
			[]string{"platform", "kind"},
		),

		AssetCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cog_asset_cache_hits_total",
				Help: "Asset kind cache hits",
			},
		),
		AssetCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cog_asset_cache_misses_total",
				Help: "Asset kind cache misses",
			},
		),

		WatchEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cog_watch_events_total",
				Help: "File system events seen by the watcher",
			},
			[]string{"op"},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cog_http_requests_total",
				Help: "Total number of status server requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cog_http_request_duration_seconds",
				Help:    "Status server request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registry.MustRegister(
		m.SyncTotal,
		m.SyncDuration,
		m.ArtifactWrites,
		m.MergeEntries,
		m.AssetCacheHits,
		m.AssetCacheMisses,
		m.WatchEventsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// CacheHit implements assets.CacheObserver
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.AssetCacheHits.Inc()
}

// CacheMiss implements assets.CacheObserver
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.AssetCacheMisses.Inc()
}

// ArtifactWritten implements journal.WriteObserver
func (m *Metrics) ArtifactWritten(artifact string) {
	if m == nil {
		return
	}
	m.ArtifactWrites.WithLabelValues(artifact, "written").Inc()
}

// ArtifactUnchanged implements journal.WriteObserver
func (m *Metrics) ArtifactUnchanged(artifact string) {
	if m == nil {
		return
	}
	m.ArtifactWrites.WithLabelValues(artifact, "unchanged").Inc()
}

// ObserveSync records one pipeline run
func (m *Metrics) ObserveSync(product, operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.SyncTotal.WithLabelValues(product, status).Inc()
	m.SyncDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetMergeEntries records the size of a merged collection
func (m *Metrics) SetMergeEntries(platform, kind string, n int) {
	if m == nil {
		return
	}
	m.MergeEntries.WithLabelValues(platform, kind).Set(float64(n))
}

// WatchEvent counts a watcher event
func (m *Metrics) WatchEvent(op string) {
	if m == nil {
		return
	}
	m.WatchEventsTotal.WithLabelValues(op).Inc()
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments status server requests
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
