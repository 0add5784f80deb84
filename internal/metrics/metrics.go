// Package metrics exposes Prometheus instrumentation for the pass tracker:
// HTTP request metrics (with route normalization to keep label cardinality
// bounded), search engine counters, TLE dataset gauges, and cache/stream
// metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passtrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "passtrack_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passtrack_searches_total",
			Help: "Total number of visibility window searches by outcome.",
		},
		[]string{"outcome"},
	)

	searchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "passtrack_search_duration_seconds",
			Help:    "Wall-clock duration of a full horizon search.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	passesFoundTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "passtrack_passes_found_total",
			Help: "Total number of refined passes emitted by searches.",
		},
	)

	tleDatasetCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "passtrack_tle_dataset_satellites",
			Help: "Number of satellites in the current TLE dataset.",
		},
	)

	tleDatasetAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "passtrack_tle_dataset_age_seconds",
			Help: "Age of the current TLE dataset in seconds.",
		},
	)

	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "passtrack_result_cache_hits_total",
			Help: "Prediction result cache hits.",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "passtrack_result_cache_misses_total",
			Help: "Prediction result cache misses.",
		},
	)

	cacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "passtrack_result_cache_evictions_total",
			Help: "Prediction result cache evictions.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "passtrack_result_cache_entries",
			Help: "Current number of prediction result cache entries.",
		},
	)

	streamConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passtrack_stream_connections_total",
			Help: "SSE stream connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "passtrack_streams_active",
			Help: "Currently active SSE streams.",
		},
	)

	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passtrack_stream_errors_total",
			Help: "SSE stream errors by kind.",
		},
		[]string{"kind"},
	)

	streamMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "passtrack_stream_messages_total",
			Help: "SSE messages sent.",
		},
	)

	streamBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "passtrack_stream_bytes_total",
			Help: "SSE bytes sent.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		searchesTotal,
		searchDurationSeconds,
		passesFoundTotal,
		tleDatasetCount,
		tleDatasetAge,
		cacheHits,
		cacheMisses,
		cacheEvictions,
		cacheEntries,
		streamConnections,
		streamsActive,
		streamErrors,
		streamMessages,
		streamBytes,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSearch records one completed horizon search.
func RecordSearch(duration time.Duration, passesFound int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	searchesTotal.WithLabelValues(outcome).Inc()
	searchDurationSeconds.Observe(duration.Seconds())
	passesFoundTotal.Add(float64(passesFound))
}

// SetTLEDatasetCount publishes the satellite count of the loaded dataset.
func SetTLEDatasetCount(n int) { tleDatasetCount.Set(float64(n)) }

// SetTLEDatasetAge publishes the age of the loaded dataset.
func SetTLEDatasetAge(seconds float64) { tleDatasetAge.Set(seconds) }

// IncCacheHits increments the result cache hit counter.
func IncCacheHits() { cacheHits.Inc() }

// IncCacheMisses increments the result cache miss counter.
func IncCacheMisses() { cacheMisses.Inc() }

// AddCacheEvictions adds n to the result cache eviction counter.
func AddCacheEvictions(n int) { cacheEvictions.Add(float64(n)) }

// SetCacheEntries publishes the current result cache size.
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

// IncStreamConnections counts a stream connect/disconnect event.
func IncStreamConnections(event string) { streamConnections.WithLabelValues(event).Inc() }

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() { streamsActive.Inc() }

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamErrors counts a stream error by kind.
func IncStreamErrors(kind string) { streamErrors.WithLabelValues(kind).Inc() }

// IncStreamMessages counts one SSE message.
func IncStreamMessages() { streamMessages.Inc() }

// AddStreamBytes adds sent byte count.
func AddStreamBytes(n int64) { streamBytes.Add(float64(n)) }

// knownRoutes are the exact paths served by the API. Anything else collapses
// to "other" so scanners and bots cannot inflate label cardinality.
var knownRoutes = map[string]bool{
	"/":                     true,
	"/healthz":              true,
	"/readyz":               true,
	"/metrics":              true,
	"/api/v1/passes":        true,
	"/api/v1/tle/metadata":  true,
	"/api/v1/tle/fetch":     true,
	"/api/v1/cache/stats":   true,
	"/api/v1/stream/passes": true,
}

// normalizeRoute maps a request path to a bounded metric label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer so SSE streaming keeps working
// through the middleware chain.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
