// Package transform provides the coordinate geometry between an SGP4 state
// vector and an observer's local sky.
//
// SGP4 emits positions in TEME (True Equator Mean Equinox). To measure the
// straight-line slant range and look angles from a fixed ground site, the
// position is first rotated into ECEF (Earth-Centered Earth-Fixed) and then
// into the observer's SEZ topocentric frame.
//
// The TEME→ECEF rotation uses GMST only (TEME → PEF ≈ ECEF), ignoring polar
// motion and the equation of equinoxes. The resulting error is tens of
// meters, far below the kilometer-scale accuracy of the element sets
// themselves.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"
)

// PositionTEME is a satellite state vector in the TEME frame.
type PositionTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// PositionECEF is a satellite state vector in the ECEF frame.
type PositionECEF struct {
	X, Y, Z    float64 // meters
	VX, VY, VZ float64 // m/s
}

// TEMEToECEF rotates a TEME state vector into ECEF at the given UTC time.
// Input is km and km/s, output meters and m/s.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST rotates TEME to ECEF using a precomputed GMST angle
// (radians). Lets a caller evaluating many grid instants batch the GMST
// computation however it likes.
//
// Position: r_ECEF = R3(θ) · r_TEME
// Velocity: v_ECEF = R3(θ) · v_TEME − ω × r_ECEF, ω = [0, 0, ω_earth]
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	xECEF := teme.X*cosG + teme.Y*sinG
	yECEF := -teme.X*sinG + teme.Y*cosG
	zECEF := teme.Z

	vxRot := teme.VX*cosG + teme.VY*sinG
	vyRot := -teme.VX*sinG + teme.VY*cosG
	vzRot := teme.VZ

	// ω × r_ECEF = [-ω·y, ω·x, 0]
	vxECEF := vxRot + OmegaEarth*yECEF
	vyECEF := vyRot - OmegaEarth*xECEF
	vzECEF := vzRot

	return PositionECEF{
		X:  xECEF * 1000.0,
		Y:  yECEF * 1000.0,
		Z:  zECEF * 1000.0,
		VX: vxECEF * 1000.0,
		VY: vyECEF * 1000.0,
		VZ: vzECEF * 1000.0,
	}
}
