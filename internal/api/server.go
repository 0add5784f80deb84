// Package api exposes the prediction engine over HTTP: synchronous pass
// searches, TLE dataset management, and operational endpoints.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/auth"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/cache"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/health"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/metrics"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/stream"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/tle"
)

// Config holds the API-facing knobs loaded from environment variables.
type Config struct {
	Addr            string
	DefaultLatDeg   float64
	DefaultLonDeg   float64
	DefaultAltM     float64
	MaxHorizonHours int
	NORADID         int
	Search          passes.Config

	// FetchInterval throttles POST /api/v1/tle/fetch; one upstream fetch per
	// interval with a burst of one.
	FetchInterval time.Duration
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer   *http.Server
	config       Config
	store        *tle.Store
	fetcher      *tle.Fetcher
	diskCache    *tle.Cache
	results      *cache.ResultCache
	fetchLimiter *rate.Limiter
	logger       *slog.Logger
}

// NewServer wires the routes and middleware chain and returns a server ready
// to listen. The stream handler is mounted as-is; everything passes through
// metrics -> logging -> auth.
func NewServer(
	cfg Config,
	authCfg auth.Config,
	store *tle.Store,
	fetcher *tle.Fetcher,
	diskCache *tle.Cache,
	results *cache.ResultCache,
	streamHandler *stream.Handler,
	logger *slog.Logger,
) *Server {
	s := &Server{
		config:       cfg,
		store:        store,
		fetcher:      fetcher,
		diskCache:    diskCache,
		results:      results,
		fetchLimiter: rate.NewLimiter(rate.Every(cfg.FetchInterval), 1),
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(store))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/passes", s.handlePasses)
	mux.HandleFunc("GET /api/v1/tle/metadata", s.handleTLEMetadata)
	mux.HandleFunc("POST /api/v1/tle/fetch", s.handleTLEFetch)
	mux.HandleFunc("GET /api/v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("GET /api/v1/stream/passes", streamHandler.HandlePasses)

	// Middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// Long enough for a multi-day synchronous search; the SSE handler
		// clears its own deadline via ResponseController.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for shutdown control.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the full middleware-wrapped handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// probePath returns true for probe paths that should log at DEBUG, not INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
