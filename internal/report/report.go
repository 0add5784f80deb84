// Package report renders refined passes as a fixed-width plain-text report in
// the observer's local time zone and exports it to a timestamped file.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
)

// DefaultTimeZone is the report time zone for the default observer.
const DefaultTimeZone = "America/Toronto"

const ruleWidth = 140

// Options describe one report. GeneratedAt is supplied by the caller so
// rendering stays deterministic.
type Options struct {
	LocationName  string
	LatitudeDeg   float64
	LongitudeDeg  float64
	MaxDistanceKm float64
	TLEEpoch      time.Time
	GeneratedAt   time.Time
	Location      *time.Location
}

// LoadLocation resolves the report time zone, falling back to UTC if the
// zone database has no entry for the name.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// formatLocal renders a UTC instant in the report zone using a 12-hour clock
// with the zone abbreviation, e.g. "2025-02-14 07:30:00 PM EST". DST shifts
// the abbreviation (EST/EDT) automatically.
func formatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 03:04:05 PM MST")
}

// Format renders the full report: a header block, the fixed-width pass table,
// and the methodology and accuracy footnotes.
func Format(opts Options, found []passes.Pass) string {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "ISS PASS PREDICTIONS FOR %s\n", strings.ToUpper(opts.LocationName))
	fmt.Fprintf(&b, "Generated: %s\n", formatLocal(opts.GeneratedAt, loc))
	fmt.Fprintf(&b, "TLE Epoch: %s\n", formatLocal(opts.TLEEpoch, loc))
	fmt.Fprintf(&b, "Total Passes Found: %d\n", len(found))
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "%-8s %-30s %-12s %-10s %-10s %-15s %-15s\n",
		"Pass #", "Date/Time (Eastern Time)", "Distance", "Max Alt", "Duration", "Est. Error", "Reliability")
	fmt.Fprintf(&b, "%-8s %-30s %-12s %-10s %-10s %-15s %-15s\n",
		"", "Closest Approach", "(km)", "(degrees)", "(min)", "(km)", "")
	fmt.Fprintln(&b, strings.Repeat("-", ruleWidth))

	for i, p := range found {
		fmt.Fprintf(&b, "%-8d %-30s %-12s %-10s %-10s %-15s %-15s\n",
			i+1,
			formatLocal(p.ClosestTime, loc),
			fmt.Sprintf("%.2f", p.MinDistanceKm),
			fmt.Sprintf("%.2f", p.MaxElevationDeg),
			fmt.Sprintf("%.2f", p.DurationSeconds/60),
			fmt.Sprintf("±%.0f", p.ErrorKm),
			string(p.Reliability),
		)
	}

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "CALCULATION METHODOLOGY:")
	fmt.Fprintln(&b, "- Phase 1: Coarse scan using 1-minute steps to identify pass windows")
	fmt.Fprintln(&b, "- Phase 2: Fine scan using 1-second steps within each padded window")
	fmt.Fprintln(&b, "- Distance: True 3D slant range from observer to satellite")
	fmt.Fprintln(&b, "- Precision: Closest approach accurate to within ~7.66 km (ISS orbital speed × 1 second)")
	fmt.Fprintln(&b, "- Duration: Actual seconds the ISS is within range (not just start-to-end approximation)")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "TIME ZONE NOTES:")
	fmt.Fprintf(&b, "- All times are shown in Eastern Time (%s timezone)\n", loc)
	fmt.Fprintln(&b, "- Daylight Saving Time (EDT) is automatically applied when applicable (March-November)")
	fmt.Fprintln(&b, "- Standard Time (EST) is used during winter months (November-March)")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "ACCURACY NOTES:")
	fmt.Fprintln(&b, "- EXCELLENT (Days 0-3): ±1-5 km - Highly accurate")
	fmt.Fprintln(&b, "- VERY GOOD (Days 3-7): ±5-20 km - Very reliable")
	fmt.Fprintln(&b, "- GOOD (Days 7-30): ±20-100 km - Generally reliable")
	fmt.Fprintln(&b, "- MODERATE (Days 30-90): ±100-500 km - Use with caution")
	fmt.Fprintln(&b, "- POOR (Days 90-180): ±500-1000 km - Low confidence")
	fmt.Fprintln(&b, "- VERY POOR (Days 180+): ±1000+ km - Unreliable, for reference only")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "NOTE: Predictions degrade due to atmospheric drag, orbital maneuvers, and space weather.")
	fmt.Fprintln(&b, "For best accuracy, update TLE data regularly and regenerate predictions.")

	return b.String()
}

// Export writes a rendered report to dir as
// ISS_Passes_<location>_<YYYYMMDD_HHMMSS>.txt and returns the full path.
// Spaces in the location name become underscores.
func Export(dir, locationName string, content string, now time.Time) (string, error) {
	name := strings.ReplaceAll(locationName, " ", "_")
	filename := fmt.Sprintf("ISS_Passes_%s_%s.txt", name, now.Format("20060102_150405"))
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("exporting report: %w", err)
	}
	return path, nil
}
