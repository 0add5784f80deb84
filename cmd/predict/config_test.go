package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfigOverlay(t *testing.T) {
	path := writeConfig(t, `
location_name = "Thunder Bay, Ontario"
lat = 48.38
lon = -89.25
years = 0.5
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.LocationName != "Thunder Bay, Ontario" {
		t.Errorf("location = %q", cfg.LocationName)
	}
	if cfg.LatDeg != 48.38 || cfg.LonDeg != -89.25 {
		t.Errorf("observer = %v, %v", cfg.LatDeg, cfg.LonDeg)
	}
	if cfg.Years != 0.5 {
		t.Errorf("years = %v, want 0.5", cfg.Years)
	}

	// Keys the file does not define keep their defaults.
	def := DefaultConfig()
	if cfg.MaxDistanceKm != def.MaxDistanceKm {
		t.Errorf("max_distance_km = %v, want default %v", cfg.MaxDistanceKm, def.MaxDistanceKm)
	}
	if cfg.NORADID != def.NORADID {
		t.Errorf("norad_id = %d, want default %d", cfg.NORADID, def.NORADID)
	}
	if cfg.Timezone != def.Timezone {
		t.Errorf("timezone = %q, want default %q", cfg.Timezone, def.Timezone)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"years zero", "years = 0.0"},
		{"years negative", "years = -1.0"},
		{"years too large", "years = 11.0"},
		{"lat out of range", "lat = 95.0"},
		{"lon out of range", "lon = -200.0"},
		{"threshold zero", "max_distance_km = 0.0"},
		{"bad norad", "norad_id = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
