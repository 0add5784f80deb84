// Package passes implements the visibility window search engine: a two-phase
// scan that turns a continuous observer-to-satellite distance function into a
// discrete, ordered list of refined pass records.
//
// Phase 1 (coarse) sweeps the horizon at a wide fixed step and flags
// intervals where the slant range is within the configured threshold. Phase 2
// (fine) re-samples each flagged interval, padded on both sides, on a dense
// uniform grid and extracts the exact closest approach, true in-range
// duration, and maximum elevation. Each refined pass carries an accuracy
// estimate that degrades with the age of the element set.
//
// The engine is deterministic: it never reads the wall clock, and identical
// inputs with a deterministic propagator produce identical output.
package passes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/transform"
)

// Propagator is the engine's view of the orbital propagation collaborator:
// given an instant, the observer-relative elevation, azimuth, and true 3-D
// slant range. The engine never does propagation itself.
type Propagator interface {
	Observe(t time.Time) (transform.LookAngles, error)
}

// PropagatorFunc adapts a plain function to the Propagator interface.
type PropagatorFunc func(t time.Time) (transform.LookAngles, error)

// Observe calls f.
func (f PropagatorFunc) Observe(t time.Time) (transform.LookAngles, error) {
	return f(t)
}

// Pass is one refined visibility window. Immutable once produced.
type Pass struct {
	// Start and End are the coarse window bounds, informational only; the
	// refined fields below are the precise results.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	ClosestTime     time.Time `json:"closest_time"`
	MinDistanceKm   float64   `json:"min_distance_km"`
	MaxElevationDeg float64   `json:"max_elevation_deg"`

	// DurationSeconds is the true in-range occupancy: fine samples with
	// distance ≤ threshold times the fine step, not End − Start.
	DurationSeconds float64 `json:"duration_seconds"`

	DaysFromEpoch float64 `json:"days_from_epoch"`
	ErrorKm       float64 `json:"error_km"`
	Reliability   Tier    `json:"reliability"`
}

// candidateWindow is a coarse-scan hit, [start, end). Ephemeral; never
// exposed to callers.
type candidateWindow struct {
	start time.Time
	end   time.Time
}

// Searcher drives the two-phase search for one element set and observer.
type Searcher struct {
	prop   Propagator
	epoch  time.Time // element set epoch, for the accuracy model
	config Config
	logger *slog.Logger
}

// NewSearcher validates the configuration and builds a Searcher. The epoch
// is the element set's reference instant; prediction error grows with time
// elapsed since it.
func NewSearcher(prop Propagator, epoch time.Time, config Config, logger *slog.Logger) (*Searcher, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if config.Workers <= 0 {
		config.Workers = defaultWorkers()
	}
	return &Searcher{
		prop:   prop,
		epoch:  epoch,
		config: config,
		logger: logger,
	}, nil
}

// Search scans [start, start+horizon) and returns all refined passes in
// chronological order. An empty slice with a nil error means no passes — a
// valid, expected outcome. A propagator failure aborts the run.
func (s *Searcher) Search(ctx context.Context, start time.Time, horizon time.Duration) ([]Pass, error) {
	var out []Pass
	err := s.run(ctx, start, horizon, func(p Pass) error {
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stream scans [start, start+horizon) and sends each refined pass on out as
// soon as it is found, in chronological order. It does not close out. A
// cancelled context stops the scan with ctx.Err(); passes already sent remain
// valid and correctly ordered.
func (s *Searcher) Stream(ctx context.Context, start time.Time, horizon time.Duration, out chan<- Pass) error {
	return s.run(ctx, start, horizon, func(p Pass) error {
		select {
		case out <- p:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// run is the coarse sweep: sample the propagator at every CoarseStep tick,
// track the in-range state, and hand each closed window to the refiner.
// Candidate windows are discovered in sweep order and refined independently,
// so emitted passes are strictly ordered by closest approach and
// non-overlapping.
func (s *Searcher) run(ctx context.Context, start time.Time, horizon time.Duration, emit func(Pass) error) error {
	if horizon <= 0 {
		return fmt.Errorf("%w: horizon %v, must be > 0", ErrInvalidConfig, horizon)
	}

	end := start.Add(horizon)
	s.logger.Debug("coarse scan starting",
		"start", start.UTC().Format(time.RFC3339),
		"end", end.UTC().Format(time.RFC3339),
		"coarse_step_seconds", s.config.CoarseStep.Seconds(),
		"max_distance_km", s.config.MaxDistanceKm,
	)

	var (
		inWindow     bool
		pendingStart time.Time
		found        int
	)

	for t := start; t.Before(end); t = t.Add(s.config.CoarseStep) {
		if err := ctx.Err(); err != nil {
			return err
		}

		la, err := s.prop.Observe(t)
		if err != nil {
			return fmt.Errorf("propagator at %s: %w", t.UTC().Format(time.RFC3339), err)
		}

		inRange := la.RangeKm <= s.config.MaxDistanceKm
		switch {
		case inRange && !inWindow:
			inWindow = true
			pendingStart = t
		case !inRange && inWindow:
			inWindow = false
			pass, ok, err := s.refine(ctx, candidateWindow{start: pendingStart, end: t})
			if err != nil {
				return err
			}
			if ok {
				found++
				if err := emit(pass); err != nil {
					return err
				}
			}
		}
	}

	// A window still open at the horizon boundary is discarded: its true
	// extent is unknown and a truncated record would understate the pass.
	if inWindow {
		s.logger.Debug("discarding window open at horizon end",
			"pending_start", pendingStart.UTC().Format(time.RFC3339),
		)
	}

	s.logger.Debug("coarse scan complete", "passes_found", found)
	return nil
}
