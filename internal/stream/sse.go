// Package stream implements Server-Sent Events (SSE) delivery of pass
// predictions. Clients connect via GET /api/v1/stream/passes and receive each
// refined pass as soon as the search finds it, instead of waiting for the
// whole horizon to be scanned.
//
// SSE message sequence:
//
//	data: {"type":"metadata","tle_epoch":"...","tle_age_seconds":1800,...}\n\n
//	data: {"type":"pass","closest_time":"...","min_distance_km":512.3,...}\n\n
//	...
//	data: {"type":"complete","passes_found":12}\n\n
//
// Keep-alive comments (:\n\n) are sent while the coarse scan is between
// passes, so proxies do not drop the idle connection.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/httputil"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/metrics"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/propagation"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/tle"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Trust X-Forwarded-For / X-Real-IP.

	// Observer defaults and search parameters.
	DefaultLatDeg   float64
	DefaultLonDeg   float64
	DefaultAltM     float64
	MaxHorizonHours int // Upper bound on requested horizons (default: 8760).
	NORADID         int
	Search          passes.Config
}

// Handler manages SSE streaming connections.
type Handler struct {
	store   *tle.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(store *tle.Store, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// HandlePasses serves the SSE pass stream.
// GET /api/v1/stream/passes?lat=46.5&lon=-81&alt=260&start=2025-02-14T00:00:00Z&horizon_hours=48
func (h *Handler) HandlePasses(w http.ResponseWriter, r *http.Request) {
	ds := h.store.Get()
	if ds == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no TLE dataset loaded")
		return
	}

	req, err := h.parseRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, ok := ds.Find(h.config.NORADID)
	if !ok {
		writeJSONError(w, http.StatusServiceUnavailable,
			fmt.Sprintf("satellite %d not in current dataset", h.config.NORADID))
		return
	}

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	connected := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"lat", req.latDeg,
		"lon", req.lonDeg,
		"horizon_hours", req.horizon.Hours(),
	)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(connected).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this long-lived connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) to prevent thundering-herd reconnects
	// after a server restart.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	meta := metadataMessage{
		Type:         "metadata",
		TLEEpoch:     entry.Epoch.UTC().Format(time.RFC3339),
		TLEAge:       int(time.Since(entry.Epoch).Seconds()),
		NORADID:      h.config.NORADID,
		LatDeg:       req.latDeg,
		LonDeg:       req.lonDeg,
		Start:        req.start.UTC().Format(time.RFC3339),
		HorizonHours: req.horizon.Hours(),
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	h.runSearch(r, c, entry, req)
}

// runSearch drives the incremental search and forwards passes to the client,
// interleaving keep-alives while the scan is between passes.
func (h *Handler) runSearch(r *http.Request, c *client, entry tle.Entry, req streamRequest) {
	ctx := r.Context()
	ip := c.ip

	prop, err := propagation.NewSGP4Propagator(entry.Line1, entry.Line2, entry.NORADID)
	if err != nil {
		metrics.IncStreamErrors("propagator_init")
		h.logger.Error("stream propagator init failed", "remote_ip", ip, "error", err)
		c.sendJSON(errorMessage{Type: "error", Error: "propagator initialization failed"})
		return
	}
	topo, err := propagation.NewTopocentric(prop, req.latDeg, req.lonDeg, req.altM)
	if err != nil {
		c.sendJSON(errorMessage{Type: "error", Error: err.Error()})
		return
	}
	searcher, err := passes.NewSearcher(topo, entry.Epoch, h.config.Search, h.logger)
	if err != nil {
		c.sendJSON(errorMessage{Type: "error", Error: err.Error()})
		return
	}

	results := make(chan passes.Pass, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- searcher.Stream(ctx, req.start, req.horizon, results)
		close(results)
	}()

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	found := 0
	for {
		select {
		case <-ctx.Done():
			<-errc // let the search goroutine observe cancellation
			return

		case p, open := <-results:
			if !open {
				if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
					metrics.IncStreamErrors("search_error")
					h.logger.Warn("stream search failed", "remote_ip", ip, "error", err)
					c.sendJSON(errorMessage{Type: "error", Error: "search failed"})
					return
				}
				c.sendJSON(completeMessage{Type: "complete", PassesFound: found})
				return
			}
			found++
			if err := c.sendJSON(passMessage{Type: "pass", Pass: p}); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

type streamRequest struct {
	latDeg  float64
	lonDeg  float64
	altM    float64
	start   time.Time
	horizon time.Duration
}

func (h *Handler) parseRequest(r *http.Request) (streamRequest, error) {
	q := r.URL.Query()
	req := streamRequest{
		latDeg:  h.config.DefaultLatDeg,
		lonDeg:  h.config.DefaultLonDeg,
		altM:    h.config.DefaultAltM,
		start:   time.Now().UTC().Truncate(time.Second),
		horizon: 24 * time.Hour,
	}

	if v := q.Get("lat"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -90 || f > 90 {
			return req, fmt.Errorf("invalid lat parameter, must be -90 to 90")
		}
		req.latDeg = f
	}
	if v := q.Get("lon"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -180 || f > 180 {
			return req, fmt.Errorf("invalid lon parameter, must be -180 to 180")
		}
		req.lonDeg = f
	}
	if v := q.Get("alt"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -500 || f > 9000 {
			return req, fmt.Errorf("invalid alt parameter, must be -500 to 9000 metres")
		}
		req.altM = f
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return req, fmt.Errorf("invalid start parameter, must be RFC 3339")
		}
		req.start = t.UTC()
	}
	if v := q.Get("horizon_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > h.config.MaxHorizonHours {
			return req, fmt.Errorf("invalid horizon_hours parameter, must be 1-%d", h.config.MaxHorizonHours)
		}
		req.horizon = time.Duration(n) * time.Hour
	}
	return req, nil
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// SSE message payload types.

type metadataMessage struct {
	Type         string  `json:"type"`
	TLEEpoch     string  `json:"tle_epoch"`
	TLEAge       int     `json:"tle_age_seconds"`
	NORADID      int     `json:"norad_id"`
	LatDeg       float64 `json:"lat"`
	LonDeg       float64 `json:"lon"`
	Start        string  `json:"start"`
	HorizonHours float64 `json:"horizon_hours"`
}

type passMessage struct {
	Type string `json:"type"`
	passes.Pass
}

type completeMessage struct {
	Type        string `json:"type"`
	PassesFound int    `json:"passes_found"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
