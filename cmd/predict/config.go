package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/report"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/tle"
)

// Config drives one prediction run.
type Config struct {
	LocationName  string
	LatDeg        float64
	LonDeg        float64
	AltM          float64
	NORADID       int
	Years         float64
	MaxDistanceKm float64
	TLEFile       string // read elements from this file instead of fetching
	TLEURL        string
	ExportDir     string
	Timezone      string
}

// DefaultConfig is the stock Sudbury run: a 0.1-year horizon with the
// 1000 km visibility threshold.
func DefaultConfig() Config {
	return Config{
		LocationName:  "Sudbury, Ontario",
		LatDeg:        46.5,
		LonDeg:        -81.0,
		AltM:          260,
		NORADID:       25544,
		Years:         0.1,
		MaxDistanceKm: passes.DefaultMaxDistanceKm,
		TLEURL:        tle.DefaultSourceURL,
		ExportDir:     ".",
		Timezone:      report.DefaultTimeZone,
	}
}

// predict config.toml key mapping.
type fileConfig struct {
	LocationName  string  `toml:"location_name"`
	Lat           float64 `toml:"lat"`
	Lon           float64 `toml:"lon"`
	AltM          float64 `toml:"alt_m"`
	NORADID       int     `toml:"norad_id"`
	Years         float64 `toml:"years"`
	MaxDistanceKm float64 `toml:"max_distance_km"`
	TLEFile       string  `toml:"tle_file"`
	TLEURL        string  `toml:"tle_url"`
	ExportDir     string  `toml:"export_dir"`
	Timezone      string  `toml:"timezone"`
}

// loadConfig overlays config.toml values onto the defaults: only keys the
// file actually defines override.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load predict config: %w", err)
	}

	if meta.IsDefined("location_name") {
		cfg.LocationName = strings.TrimSpace(raw.LocationName)
	}
	if meta.IsDefined("lat") {
		cfg.LatDeg = raw.Lat
	}
	if meta.IsDefined("lon") {
		cfg.LonDeg = raw.Lon
	}
	if meta.IsDefined("alt_m") {
		cfg.AltM = raw.AltM
	}
	if meta.IsDefined("norad_id") {
		cfg.NORADID = raw.NORADID
	}
	if meta.IsDefined("years") {
		cfg.Years = raw.Years
	}
	if meta.IsDefined("max_distance_km") {
		cfg.MaxDistanceKm = raw.MaxDistanceKm
	}
	if meta.IsDefined("tle_file") {
		cfg.TLEFile = strings.TrimSpace(raw.TLEFile)
	}
	if meta.IsDefined("tle_url") {
		cfg.TLEURL = strings.TrimSpace(raw.TLEURL)
	}
	if meta.IsDefined("export_dir") {
		cfg.ExportDir = strings.TrimSpace(raw.ExportDir)
	}
	if meta.IsDefined("timezone") {
		cfg.Timezone = strings.TrimSpace(raw.Timezone)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Years <= 0 || c.Years > 10 {
		return fmt.Errorf("years %v out of range: must be > 0 and <= 10", c.Years)
	}
	if c.LatDeg < -90 || c.LatDeg > 90 {
		return fmt.Errorf("lat %v out of range [-90, 90]", c.LatDeg)
	}
	if c.LonDeg < -180 || c.LonDeg > 180 {
		return fmt.Errorf("lon %v out of range [-180, 180]", c.LonDeg)
	}
	if c.MaxDistanceKm <= 0 {
		return fmt.Errorf("max_distance_km must be > 0, got %v", c.MaxDistanceKm)
	}
	if c.NORADID < 1 {
		return fmt.Errorf("norad_id must be >= 1, got %d", c.NORADID)
	}
	return nil
}
