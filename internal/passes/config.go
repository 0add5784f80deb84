package passes

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig marks a search configuration rejected at entry.
var ErrInvalidConfig = errors.New("invalid search config")

// Default step sizes for the two-phase scan. The coarse step bounds the
// shortest detectable pass; the fine step bounds closest-approach precision
// (~7.66 km for the ISS at 1 s).
const (
	DefaultMaxDistanceKm = 1000.0
	DefaultCoarseStep    = 60 * time.Second
	DefaultFineStep      = 1 * time.Second
	DefaultFinePad       = 60 * time.Second
)

// Config controls the visibility window search.
type Config struct {
	// MaxDistanceKm is the slant-range threshold: the satellite is "in
	// range" at an instant when its distance is ≤ this value. Must be > 0.
	MaxDistanceKm float64

	// CoarseStep is the sweep interval of the first phase. Passes entirely
	// shorter than this and unluckily aligned between two samples are
	// missed; callers needing guaranteed detection must choose a step
	// smaller than the shortest plausible pass.
	CoarseStep time.Duration

	// FineStep is the grid resolution of the refinement phase.
	FineStep time.Duration

	// FinePad extends a candidate window on both sides before refinement,
	// so the true boundary crossings that coarse sampling only
	// approximately located fall inside the fine grid. Must be ≥ CoarseStep.
	FinePad time.Duration

	// Workers bounds the parallelism of fine-grid evaluation.
	// 0 means runtime.NumCPU().
	Workers int
}

// DefaultConfig returns the standard 60 s / 1 s / 60 s configuration with a
// 1000 km threshold.
func DefaultConfig() Config {
	return Config{
		MaxDistanceKm: DefaultMaxDistanceKm,
		CoarseStep:    DefaultCoarseStep,
		FineStep:      DefaultFineStep,
		FinePad:       DefaultFinePad,
	}
}

// validate rejects configurations that cannot produce a meaningful search.
func (c Config) validate() error {
	if c.MaxDistanceKm <= 0 {
		return fmt.Errorf("%w: max distance %.2f km, must be > 0", ErrInvalidConfig, c.MaxDistanceKm)
	}
	if c.CoarseStep <= 0 || c.FineStep <= 0 {
		return fmt.Errorf("%w: steps must be positive (coarse=%v fine=%v)", ErrInvalidConfig, c.CoarseStep, c.FineStep)
	}
	if c.CoarseStep <= c.FineStep {
		return fmt.Errorf("%w: coarse step %v must exceed fine step %v", ErrInvalidConfig, c.CoarseStep, c.FineStep)
	}
	if c.FinePad < c.CoarseStep {
		return fmt.Errorf("%w: fine pad %v must be at least the coarse step %v", ErrInvalidConfig, c.FinePad, c.CoarseStep)
	}
	return nil
}
