// passtrackd is the pass prediction service: it keeps a TLE dataset warm and
// serves synchronous and streamed ISS pass searches over HTTP.
package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/api"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/auth"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/cache"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/metrics"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/stream"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/tle"
)

// Default observer: Sudbury, Ontario.
const (
	defaultLatDeg  = 46.5
	defaultLonDeg  = -81.0
	defaultAltM    = 260.0
	defaultNORADID = 25544
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	apiCfg := loadAPIConfig(logger)
	tleCfg := loadTLEConfig(logger)

	store := tle.NewStore()
	diskCache := tle.NewCache(tleCfg.cacheDir, tleCfg.maxFiles)
	fetcher := tle.NewFetcher(tleCfg.sourceURL, logger)

	// Warm start from the newest cached TLE file, if any.
	if data, ts, err := diskCache.LoadLatest(); err != nil {
		logger.Info("no TLE cache found, starting without TLE data", "error", err)
	} else if entries, err := tle.Parse(bytes.NewReader(data), logger); err != nil {
		logger.Warn("failed to parse cached TLE data", "error", err)
	} else {
		store.Set(tle.NewDataset("cache", ts, entries))
		metrics.SetTLEDatasetCount(len(entries))
		logger.Info("loaded TLE data from cache",
			"count", len(entries),
			"cached_at", ts.UTC().Format(time.RFC3339),
		)
	}

	results := cache.NewResultCache(loadResultCacheSize(logger), logger)

	streamCfg := loadStreamConfig(logger, apiCfg)
	streamHandler := stream.NewHandler(store, streamCfg, logger)

	srv := api.NewServer(apiCfg, authCfg, store, fetcher, diskCache, results, streamHandler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Keep the dataset age gauge current.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetTLEDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", apiCfg.Addr,
			"auth_enabled", authCfg.Enabled,
			"norad_id", apiCfg.NORADID,
			"observer_lat", apiCfg.DefaultLatDeg,
			"observer_lon", apiCfg.DefaultLonDeg,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	if v := os.Getenv("PASSTRACK_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("PASSTRACK_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("PASSTRACK_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("PASSTRACK_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadAPIConfig(logger *slog.Logger) api.Config {
	cfg := api.Config{
		Addr:            ":8080",
		DefaultLatDeg:   defaultLatDeg,
		DefaultLonDeg:   defaultLonDeg,
		DefaultAltM:     defaultAltM,
		MaxHorizonHours: 8760,
		NORADID:         defaultNORADID,
		Search:          loadSearchConfig(logger),
		FetchInterval:   time.Minute,
	}

	if v := os.Getenv("PASSTRACK_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("PASSTRACK_OBSERVER_LAT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -90 || f > 90 {
			logger.Warn("invalid PASSTRACK_OBSERVER_LAT value, using default", "value", v, "default", cfg.DefaultLatDeg)
		} else {
			cfg.DefaultLatDeg = f
		}
	}

	if v := os.Getenv("PASSTRACK_OBSERVER_LON"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -180 || f > 180 {
			logger.Warn("invalid PASSTRACK_OBSERVER_LON value, using default", "value", v, "default", cfg.DefaultLonDeg)
		} else {
			cfg.DefaultLonDeg = f
		}
	}

	if v := os.Getenv("PASSTRACK_OBSERVER_ALT_M"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -500 || f > 9000 {
			logger.Warn("invalid PASSTRACK_OBSERVER_ALT_M value, using default", "value", v, "default", cfg.DefaultAltM)
		} else {
			cfg.DefaultAltM = f
		}
	}

	if v := os.Getenv("PASSTRACK_NORAD_ID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_NORAD_ID value, using default", "value", v, "default", cfg.NORADID)
		} else {
			cfg.NORADID = n
		}
	}

	if v := os.Getenv("PASSTRACK_MAX_HORIZON_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_MAX_HORIZON_HOURS value, using default", "value", v, "default", cfg.MaxHorizonHours)
		} else {
			cfg.MaxHorizonHours = n
		}
	}

	if v := os.Getenv("PASSTRACK_TLE_FETCH_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_TLE_FETCH_INTERVAL value, using default", "value", v, "default", 60)
		} else {
			cfg.FetchInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("api config",
		"addr", cfg.Addr,
		"observer_lat", cfg.DefaultLatDeg,
		"observer_lon", cfg.DefaultLonDeg,
		"observer_alt_m", cfg.DefaultAltM,
		"norad_id", cfg.NORADID,
		"max_horizon_hours", cfg.MaxHorizonHours,
	)

	return cfg
}

func loadSearchConfig(logger *slog.Logger) passes.Config {
	cfg := passes.DefaultConfig()

	if v := os.Getenv("PASSTRACK_MAX_DISTANCE_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid PASSTRACK_MAX_DISTANCE_KM value, using default", "value", v, "default", cfg.MaxDistanceKm)
		} else {
			cfg.MaxDistanceKm = f
		}
	}

	if v := os.Getenv("PASSTRACK_COARSE_STEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_COARSE_STEP value, using default", "value", v, "default", int(cfg.CoarseStep.Seconds()))
		} else {
			cfg.CoarseStep = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("PASSTRACK_FINE_STEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_FINE_STEP value, using default", "value", v, "default", int(cfg.FineStep.Seconds()))
		} else {
			cfg.FineStep = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("PASSTRACK_FINE_PAD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_FINE_PAD value, using default", "value", v, "default", int(cfg.FinePad.Seconds()))
		} else {
			cfg.FinePad = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("PASSTRACK_SEARCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_SEARCH_WORKERS value, using default", "value", v)
		} else {
			cfg.Workers = n
		}
	}

	logger.Info("search config",
		"max_distance_km", cfg.MaxDistanceKm,
		"coarse_step_seconds", cfg.CoarseStep.Seconds(),
		"fine_step_seconds", cfg.FineStep.Seconds(),
		"fine_pad_seconds", cfg.FinePad.Seconds(),
		"workers", cfg.Workers,
	)

	return cfg
}

type tleConfig struct {
	sourceURL string
	cacheDir  string
	maxFiles  int
}

func loadTLEConfig(logger *slog.Logger) tleConfig {
	cfg := tleConfig{
		sourceURL: tle.DefaultSourceURL,
		cacheDir:  "/tmp/passtrack/tle",
		maxFiles:  5,
	}

	if v := os.Getenv("PASSTRACK_TLE_SOURCE_URL"); v != "" {
		cfg.sourceURL = v
	}
	if v := os.Getenv("PASSTRACK_TLE_CACHE_DIR"); v != "" {
		cfg.cacheDir = v
	}
	if v := os.Getenv("PASSTRACK_TLE_CACHE_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_TLE_CACHE_MAX_FILES value, using default", "value", v, "default", cfg.maxFiles)
		} else {
			cfg.maxFiles = n
		}
	}

	logger.Info("tle config",
		"source_url", cfg.sourceURL,
		"cache_dir", cfg.cacheDir,
		"max_files", cfg.maxFiles,
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger, apiCfg api.Config) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
		DefaultLatDeg:      apiCfg.DefaultLatDeg,
		DefaultLonDeg:      apiCfg.DefaultLonDeg,
		DefaultAltM:        apiCfg.DefaultAltM,
		MaxHorizonHours:    apiCfg.MaxHorizonHours,
		NORADID:            apiCfg.NORADID,
		Search:             apiCfg.Search,
	}

	if v := os.Getenv("PASSTRACK_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("PASSTRACK_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("PASSTRACK_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid PASSTRACK_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = b
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}

func loadResultCacheSize(logger *slog.Logger) int {
	size := cache.DefaultMaxEntries
	if v := os.Getenv("PASSTRACK_RESULT_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid PASSTRACK_RESULT_CACHE_MAX_ENTRIES value, using default", "value", v, "default", size)
		} else {
			size = n
		}
	}
	return size
}
