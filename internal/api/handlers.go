package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/cache"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/metrics"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/propagation"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/tle"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// searchRequest is a validated pass search query.
type searchRequest struct {
	latDeg  float64
	lonDeg  float64
	altM    float64
	start   time.Time
	horizon time.Duration
}

func (s *Server) parseSearchRequest(r *http.Request) (searchRequest, error) {
	q := r.URL.Query()
	req := searchRequest{
		latDeg:  s.config.DefaultLatDeg,
		lonDeg:  s.config.DefaultLonDeg,
		altM:    s.config.DefaultAltM,
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
		if err != nil || n < 1 || n > s.config.MaxHorizonHours {
			return req, fmt.Errorf("invalid horizon_hours parameter, must be 1-%d", s.config.MaxHorizonHours)
		}
		req.horizon = time.Duration(n) * time.Hour
	}
	return req, nil
}

type passesResponse struct {
	NORADID       int           `json:"norad_id"`
	TLEEpoch      time.Time     `json:"tle_epoch"`
	TLEAgeSeconds int           `json:"tle_age_seconds"`
	LatDeg        float64       `json:"lat"`
	LonDeg        float64       `json:"lon"`
	AltM          float64       `json:"alt_m"`
	Start         time.Time     `json:"start"`
	HorizonHours  float64       `json:"horizon_hours"`
	Cached        bool          `json:"cached"`
	PassesFound   int           `json:"passes_found"`
	Passes        []passes.Pass `json:"passes"`
}

// handlePasses runs a synchronous search and returns every refined pass.
// GET /api/v1/passes?lat=46.5&lon=-81&alt=260&start=...&horizon_hours=48
func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no TLE dataset loaded")
		return
	}

	req, err := s.parseSearchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, ok := ds.Find(s.config.NORADID)
	if !ok {
		writeError(w, http.StatusServiceUnavailable,
			fmt.Sprintf("satellite %d not in current dataset", s.config.NORADID))
		return
	}

	resp := passesResponse{
		NORADID:       s.config.NORADID,
		TLEEpoch:      entry.Epoch,
		TLEAgeSeconds: int(time.Since(entry.Epoch).Seconds()),
		LatDeg:        req.latDeg,
		LonDeg:        req.lonDeg,
		AltM:          req.altM,
		Start:         req.start,
		HorizonHours:  req.horizon.Hours(),
	}

	key := cache.Key{
		LatDeg:        req.latDeg,
		LonDeg:        req.lonDeg,
		AltM:          req.altM,
		Start:         req.start,
		Horizon:       req.horizon,
		MaxDistanceKm: s.config.Search.MaxDistanceKm,
	}
	if found, ok := s.results.Get(key, ds.FetchedAt); ok {
		resp.Cached = true
		resp.PassesFound = len(found)
		resp.Passes = found
		writeJSON(w, http.StatusOK, resp)
		return
	}

	found, err := s.runSearch(r, entry, req)
	if err != nil {
		if errors.Is(err, passes.ErrInvalidConfig) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("pass search failed",
			"lat", req.latDeg,
			"lon", req.lonDeg,
			"horizon_hours", req.horizon.Hours(),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	s.results.Put(key, ds.FetchedAt, found, time.Now())
	resp.PassesFound = len(found)
	resp.Passes = found
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) runSearch(r *http.Request, entry tle.Entry, req searchRequest) ([]passes.Pass, error) {
	prop, err := propagation.NewSGP4Propagator(entry.Line1, entry.Line2, entry.NORADID)
	if err != nil {
		return nil, err
	}
	topo, err := propagation.NewTopocentric(prop, req.latDeg, req.lonDeg, req.altM)
	if err != nil {
		return nil, err
	}
	searcher, err := passes.NewSearcher(topo, entry.Epoch, s.config.Search, s.logger)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	found, err := searcher.Search(r.Context(), req.start, req.horizon)
	metrics.RecordSearch(time.Since(start), len(found), err)
	return found, err
}

type tleMetadataResponse struct {
	Source         string    `json:"source"`
	FetchedAt      time.Time `json:"fetched_at"`
	AgeSeconds     float64   `json:"age_seconds"`
	SatelliteCount int       `json:"satellite_count"`
	OldestEpoch    time.Time `json:"oldest_epoch"`
	NewestEpoch    time.Time `json:"newest_epoch"`
}

// handleTLEMetadata reports the current dataset without exposing element data.
func (s *Server) handleTLEMetadata(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no TLE dataset loaded")
		return
	}
	writeJSON(w, http.StatusOK, tleMetadataResponse{
		Source:         ds.Source,
		FetchedAt:      ds.FetchedAt,
		AgeSeconds:     s.store.AgeSeconds(),
		SatelliteCount: len(ds.Satellites),
		OldestEpoch:    ds.EpochRange.Min,
		NewestEpoch:    ds.EpochRange.Max,
	})
}

// handleTLEFetch pulls fresh elements from the upstream source. Throttled:
// Celestrak asks integrators not to hammer the GP endpoint.
func (s *Server) handleTLEFetch(w http.ResponseWriter, r *http.Request) {
	if !s.fetchLimiter.Allow() {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.config.FetchInterval.Seconds())))
		writeError(w, http.StatusTooManyRequests, "fetch rate limit exceeded")
		return
	}

	data, err := s.fetcher.Fetch(r.Context())
	if err != nil {
		s.logger.Error("tle fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}

	entries, err := tle.Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		s.logger.Error("tle parse failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream data unparseable")
		return
	}

	ds := tle.NewDataset(s.fetcher.SourceURL(), time.Now(), entries)
	s.store.Set(ds)
	metrics.SetTLEDatasetCount(len(entries))

	if s.diskCache != nil {
		if err := s.diskCache.Write(data, ds.FetchedAt); err != nil {
			s.logger.Warn("tle disk cache write failed", "error", err)
		}
	}

	s.logger.Info("tle dataset refreshed",
		"source", ds.Source,
		"satellites", len(entries),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"satellites": len(entries),
		"fetched_at": ds.FetchedAt,
	})
}

// handleCacheStats exposes result cache counters.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.results.Stats())
}
