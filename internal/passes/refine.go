package passes

import (
	"context"
	"time"
)

// refine re-samples a candidate window, padded by FinePad on both sides, on
// a uniform FineStep grid, and reduces the batch to a single Pass: argmin of
// distance, max of elevation, and the in-range occupancy count.
//
// Returns ok=false when the grid minimum exceeds the threshold — a coarse
// hit the fine grid cannot confirm (disagreement at the padded boundary) is
// dropped rather than reported.
func (s *Searcher) refine(ctx context.Context, w candidateWindow) (Pass, bool, error) {
	gridStart := w.start.Add(-s.config.FinePad)
	gridEnd := w.end.Add(s.config.FinePad)

	n := int(gridEnd.Sub(gridStart)/s.config.FineStep) + 1
	times := make([]time.Time, n)
	for i := range times {
		times[i] = gridStart.Add(time.Duration(i) * s.config.FineStep)
	}

	// One batched evaluation over the whole grid; the reduction below only
	// touches the result buffer.
	obs, err := s.observeGrid(ctx, times)
	if err != nil {
		return Pass{}, false, err
	}

	argmin := 0
	for i := 1; i < n; i++ {
		if obs[i].RangeKm < obs[argmin].RangeKm {
			argmin = i
		}
	}
	minDist := obs[argmin].RangeKm

	if minDist > s.config.MaxDistanceKm {
		s.logger.Debug("discarding unconfirmed candidate window",
			"window_start", w.start.UTC().Format(time.RFC3339),
			"min_distance_km", minDist,
		)
		return Pass{}, false, nil
	}

	maxElev := obs[0].ElevationDeg
	inRange := 0
	for i := 0; i < n; i++ {
		if obs[i].ElevationDeg > maxElev {
			maxElev = obs[i].ElevationDeg
		}
		// Inclusive ≤, matching the coarse phase: a sample exactly at the
		// threshold counts toward both detection and duration.
		if obs[i].RangeKm <= s.config.MaxDistanceKm {
			inRange++
		}
	}

	closest := times[argmin]
	days := closest.Sub(s.epoch).Seconds() / 86400.0
	errorKm, tier := EstimateAccuracy(days)

	return Pass{
		Start:           w.start,
		End:             w.end,
		ClosestTime:     closest,
		MinDistanceKm:   minDist,
		MaxElevationDeg: maxElev,
		DurationSeconds: float64(inRange) * s.config.FineStep.Seconds(),
		DaysFromEpoch:   days,
		ErrorKm:         errorKm,
		Reliability:     tier,
	}, true, nil
}
