package transform

import (
	"math"
	"testing"
	"time"
)

func timeUTC(y, m, d, h int) time.Time {
	return time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC)
}

func TestNewObserverPosition_ECEFMagnitude(t *testing.T) {
	// Sea-level observer at the equator: ECEF magnitude is the WGS-84
	// equatorial radius (6378137 m).
	obs := NewObserverPosition(0, 0, 0)
	mag := math.Sqrt(obs.ECEFx*obs.ECEFx + obs.ECEFy*obs.ECEFy + obs.ECEFz*obs.ECEFz)
	if math.Abs(mag-6378137.0) > 1.0 {
		t.Errorf("equatorial observer ECEF magnitude = %.1f m, want ~6378137 m", mag)
	}

	// North pole: polar radius (~6356752 m).
	obs2 := NewObserverPosition(90, 0, 0)
	mag2 := math.Sqrt(obs2.ECEFx*obs2.ECEFx + obs2.ECEFy*obs2.ECEFy + obs2.ECEFz*obs2.ECEFz)
	if math.Abs(mag2-6356752.3) > 1.0 {
		t.Errorf("polar observer ECEF magnitude = %.1f m, want ~6356752 m", mag2)
	}
}

func TestNewObserverPosition_Altitude(t *testing.T) {
	obs0 := NewObserverPosition(0, 0, 0)
	obs100 := NewObserverPosition(0, 0, 100)

	mag0 := math.Sqrt(obs0.ECEFx*obs0.ECEFx + obs0.ECEFy*obs0.ECEFy + obs0.ECEFz*obs0.ECEFz)
	mag100 := math.Sqrt(obs100.ECEFx*obs100.ECEFx + obs100.ECEFy*obs100.ECEFy + obs100.ECEFz*obs100.ECEFz)

	if diff := mag100 - mag0; math.Abs(diff-100.0) > 0.01 {
		t.Errorf("altitude difference = %.3f m, want 100 m", diff)
	}
}

func TestECEFToLookAngles_DirectlyOverhead(t *testing.T) {
	// Satellite 400 km straight up from an equatorial observer: elevation
	// ~90° and slant range exactly the altitude.
	obs := NewObserverPosition(0, 0, 0)

	satAlt := 400000.0
	la := ECEFToLookAngles(obs, obs.ECEFx+satAlt, obs.ECEFy, obs.ECEFz)

	if math.Abs(la.ElevationDeg-90.0) > 0.1 {
		t.Errorf("overhead elevation = %.2f deg, want ~90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-400.0) > 1.0 {
		t.Errorf("overhead slant range = %.2f km, want ~400", la.RangeKm)
	}
}

func TestECEFToLookAngles_SlantRangeGrowsWithSeparation(t *testing.T) {
	// At fixed altitude, slant range must grow monotonically as the
	// satellite moves away from the observer's zenith.
	obs := NewObserverPosition(46.5, -81.0, 0)

	prev := 0.0
	for i, lonOffset := range []float64{0, 2, 4, 8, 16} {
		sat := NewObserverPosition(46.5, -81.0+lonOffset, 420000)
		la := ECEFToLookAngles(obs, sat.ECEFx, sat.ECEFy, sat.ECEFz)
		if la.RangeKm <= 0 {
			t.Fatalf("offset %v: slant range %.2f km not positive", lonOffset, la.RangeKm)
		}
		if i > 0 && la.RangeKm <= prev {
			t.Errorf("offset %v: slant range %.2f km not greater than %.2f km", lonOffset, la.RangeKm, prev)
		}
		prev = la.RangeKm
	}
}

func TestECEFToLookAngles_AzimuthDirections(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)

	// North.
	satN := NewObserverPosition(10, 0, 400000)
	laN := ECEFToLookAngles(obs, satN.ECEFx, satN.ECEFy, satN.ECEFz)
	if laN.AzimuthDeg > 30 && laN.AzimuthDeg < 330 {
		t.Errorf("northward azimuth = %.2f deg, want near 0/360", laN.AzimuthDeg)
	}

	// East.
	satE := NewObserverPosition(0, 10, 400000)
	laE := ECEFToLookAngles(obs, satE.ECEFx, satE.ECEFy, satE.ECEFz)
	if math.Abs(laE.AzimuthDeg-90.0) > 30 {
		t.Errorf("eastward azimuth = %.2f deg, want near 90", laE.AzimuthDeg)
	}

	// South.
	satS := NewObserverPosition(-10, 0, 400000)
	laS := ECEFToLookAngles(obs, satS.ECEFx, satS.ECEFy, satS.ECEFz)
	if math.Abs(laS.AzimuthDeg-180.0) > 30 {
		t.Errorf("southward azimuth = %.2f deg, want near 180", laS.AzimuthDeg)
	}
}

func TestGMST_Range(t *testing.T) {
	// GMST must stay in [0, 2π) across a sweep of times.
	for _, tt := range []struct {
		y, m, d, h int
	}{
		{2000, 1, 1, 12},
		{2025, 2, 14, 4},
		{2026, 8, 24, 0},
		{1999, 12, 31, 23},
	} {
		got := GMST(timeUTC(tt.y, tt.m, tt.d, tt.h))
		if got < 0 || got >= 2*math.Pi {
			t.Errorf("GMST(%d-%d-%d %dh) = %f, want [0, 2π)", tt.y, tt.m, tt.d, tt.h, got)
		}
	}
}

func TestJulianDate_J2000(t *testing.T) {
	// JD at the J2000.0 epoch is 2451545.0.
	jd := JulianDate(timeUTC(2000, 1, 1, 12))
	if math.Abs(jd-2451545.0) > 1e-6 {
		t.Errorf("JulianDate(J2000) = %f, want 2451545.0", jd)
	}
}
