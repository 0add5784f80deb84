package propagation

import (
	"fmt"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/transform"
)

// Topocentric binds an SGP4 propagator to a fixed ground observer. Observe
// runs the full chain for one instant: SGP4 in TEME, rotation to ECEF, then
// projection into the observer's local horizon frame. It satisfies the search
// engine's propagator contract.
//
// Immutable after construction; safe for concurrent use, which the grid
// evaluator relies on.
type Topocentric struct {
	prop     *SGP4Propagator
	observer transform.ObserverPosition
}

// NewTopocentric builds the observer-bound chain. Latitude and longitude are
// geodetic degrees, altitude is metres above the WGS-84 ellipsoid.
func NewTopocentric(prop *SGP4Propagator, latDeg, lonDeg, altM float64) (*Topocentric, error) {
	if latDeg < -90 || latDeg > 90 {
		return nil, fmt.Errorf("latitude %.4f out of range [-90, 90]", latDeg)
	}
	if lonDeg < -180 || lonDeg > 180 {
		return nil, fmt.Errorf("longitude %.4f out of range [-180, 180]", lonDeg)
	}
	return &Topocentric{
		prop:     prop,
		observer: transform.NewObserverPosition(latDeg, lonDeg, altM),
	}, nil
}

// Observe returns the observer-relative look angles at t. The distance is the
// true 3-D slant range, not a ground-track distance.
func (tc *Topocentric) Observe(t time.Time) (transform.LookAngles, error) {
	t = t.UTC()
	teme, err := tc.prop.Propagate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	if err != nil {
		return transform.LookAngles{}, err
	}
	ecef := transform.TEMEToECEF(teme, t)
	return transform.ECEFToLookAngles(tc.observer, ecef.X, ecef.Y, ecef.Z), nil
}
