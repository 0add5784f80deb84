package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
)

func samplePasses() []passes.Pass {
	closest := time.Date(2025, 2, 15, 0, 30, 0, 0, time.UTC)
	return []passes.Pass{
		{
			Start:           closest.Add(-2 * time.Minute),
			End:             closest.Add(2 * time.Minute),
			ClosestTime:     closest,
			MinDistanceKm:   512.34,
			MaxElevationDeg: 61.2,
			DurationSeconds: 201,
			DaysFromEpoch:   0.84,
			ErrorKm:         2.1,
			Reliability:     passes.TierExcellent,
		},
		{
			Start:           closest.Add(90 * time.Minute),
			End:             closest.Add(94 * time.Minute),
			ClosestTime:     closest.Add(92 * time.Minute),
			MinDistanceKm:   843.0,
			MaxElevationDeg: 24.7,
			DurationSeconds: 120,
			DaysFromEpoch:   0.9,
			ErrorKm:         2.2,
			Reliability:     passes.TierExcellent,
		},
	}
}

func testOptions() Options {
	return Options{
		LocationName:  "Sudbury, Ontario",
		LatitudeDeg:   46.5,
		LongitudeDeg:  -81.0,
		MaxDistanceKm: 1000,
		TLEEpoch:      time.Date(2025, 2, 14, 4, 19, 40, 0, time.UTC),
		GeneratedAt:   time.Date(2025, 2, 14, 15, 0, 0, 0, time.UTC),
		Location:      LoadLocation(DefaultTimeZone),
	}
}

func TestFormatEasternStandardTime(t *testing.T) {
	out := Format(testOptions(), samplePasses())

	if !strings.Contains(out, "ISS PASS PREDICTIONS FOR SUDBURY, ONTARIO") {
		t.Error("missing upper-cased location header")
	}
	if !strings.Contains(out, "Total Passes Found: 2") {
		t.Error("missing pass count")
	}
	// 2025-02-15 00:30 UTC is 2025-02-14 07:30 PM EST (winter, UTC-5).
	if !strings.Contains(out, "2025-02-14 07:30:00 PM EST") {
		t.Errorf("closest approach not rendered in EST:\n%s", out)
	}
	// Duration is reported in minutes.
	if !strings.Contains(out, "3.35") {
		t.Error("duration 201 s not rendered as 3.35 min")
	}
	if !strings.Contains(out, "±2") {
		t.Error("missing estimated error column")
	}
	if !strings.Contains(out, "EXCELLENT") {
		t.Error("missing reliability tier")
	}
}

// The same wall-clock conversion in July must pick up daylight time.
func TestFormatDaylightTime(t *testing.T) {
	opts := testOptions()
	opts.GeneratedAt = time.Date(2025, 7, 15, 15, 0, 0, 0, time.UTC)
	p := samplePasses()[:1]
	p[0].ClosestTime = time.Date(2025, 7, 15, 23, 30, 0, 0, time.UTC)

	out := Format(opts, p)
	// 23:30 UTC in July is 07:30 PM EDT (UTC-4).
	if !strings.Contains(out, "2025-07-15 07:30:00 PM EDT") {
		t.Errorf("closest approach not rendered in EDT:\n%s", out)
	}
}

func TestFormatNoPasses(t *testing.T) {
	out := Format(testOptions(), nil)
	if !strings.Contains(out, "Total Passes Found: 0") {
		t.Error("missing zero pass count")
	}
	if !strings.Contains(out, "ACCURACY NOTES:") {
		t.Error("footnotes should render even with no passes")
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	content := Format(testOptions(), samplePasses())
	now := time.Date(2025, 2, 14, 10, 4, 5, 0, time.UTC)

	path, err := Export(dir, "Sudbury, Ontario", content, now)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	want := filepath.Join(dir, "ISS_Passes_Sudbury,_Ontario_20250214_100405.txt")
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading exported file: %v", err)
	}
	if string(data) != content {
		t.Error("exported content differs from rendered report")
	}
}
