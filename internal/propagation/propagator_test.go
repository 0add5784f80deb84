package propagation

import (
	"math"
	"testing"
	"time"
)

// Real ISS orbital elements, epoch 2025-02-14.
const (
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058"
)

func TestPropagateSingle(t *testing.T) {
	prop, err := NewSGP4Propagator(issLine1, issLine2, 25544)
	if err != nil {
		t.Fatalf("NewSGP4Propagator failed: %v", err)
	}

	target := time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)
	teme, err := prop.Propagate(target.Year(), int(target.Month()), target.Day(), target.Hour(), target.Minute(), target.Second())
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}

	// ISS orbits at ~420 km altitude: geocentric distance ~6791 km.
	mag := math.Sqrt(teme.X*teme.X + teme.Y*teme.Y + teme.Z*teme.Z)
	if mag < 6500 || mag > 7000 {
		t.Errorf("TEME position magnitude = %.1f km, expected ~6791 km (ISS orbit)", mag)
	}

	// Orbital velocity ~7.66 km/s for the ISS.
	vmag := math.Sqrt(teme.VX*teme.VX + teme.VY*teme.VY + teme.VZ*teme.VZ)
	if vmag < 7.0 || vmag > 8.2 {
		t.Errorf("TEME velocity magnitude = %.2f km/s, expected ~7.66 km/s", vmag)
	}
}

func TestInvalidTLERejected(t *testing.T) {
	tests := []struct {
		name  string
		line1 string
		line2 string
	}{
		{"too short", "1 25544U", issLine2},
		{"wrong line1 prefix", "2" + issLine1[1:], issLine2},
		{"wrong line2 prefix", issLine1, "1" + issLine2[1:]},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSGP4Propagator(tt.line1, tt.line2, 25544); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestTopocentricObserve(t *testing.T) {
	prop, err := NewSGP4Propagator(issLine1, issLine2, 25544)
	if err != nil {
		t.Fatalf("NewSGP4Propagator failed: %v", err)
	}
	tc, err := NewTopocentric(prop, 46.5, -81.0, 260)
	if err != nil {
		t.Fatalf("NewTopocentric failed: %v", err)
	}

	la, err := tc.Observe(time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	// Slant range from a ground observer to the ISS is bounded by the
	// geometry: no closer than its altitude, no farther than roughly the
	// Earth's diameter plus the altitude.
	if la.RangeKm < 400 || la.RangeKm > 14000 {
		t.Errorf("slant range = %.1f km, outside plausible ISS bounds", la.RangeKm)
	}
	if la.ElevationDeg < -90 || la.ElevationDeg > 90 {
		t.Errorf("elevation = %.1f deg, outside [-90, 90]", la.ElevationDeg)
	}
	if la.AzimuthDeg < 0 || la.AzimuthDeg >= 360 {
		t.Errorf("azimuth = %.1f deg, outside [0, 360)", la.AzimuthDeg)
	}
}

func TestTopocentricObserverValidation(t *testing.T) {
	prop, err := NewSGP4Propagator(issLine1, issLine2, 25544)
	if err != nil {
		t.Fatalf("NewSGP4Propagator failed: %v", err)
	}
	if _, err := NewTopocentric(prop, 91, 0, 0); err == nil {
		t.Error("latitude 91 accepted, want error")
	}
	if _, err := NewTopocentric(prop, 0, -181, 0); err == nil {
		t.Error("longitude -181 accepted, want error")
	}
}
