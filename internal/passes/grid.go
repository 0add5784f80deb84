package passes

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/transform"
)

func defaultWorkers() int {
	return runtime.NumCPU()
}

// observeGrid evaluates the propagator at every grid instant using a bounded
// pool of workers. Each worker writes results by grid index, so the output
// order is deterministic regardless of scheduling. The first propagator
// failure cancels the remaining work and aborts the whole evaluation: there
// is no partial-window best-effort recovery.
func (s *Searcher) observeGrid(ctx context.Context, times []time.Time) ([]transform.LookAngles, error) {
	n := len(times)
	results := make([]transform.LookAngles, n)

	workers := s.config.Workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i, t := range times {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			la, err := s.prop.Observe(t)
			if err != nil {
				return nil, err
			}
			results[i] = la
		}
		return results, nil
	}

	gridCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexes := make(chan int)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				la, err := s.prop.Observe(times[i])
				if err != nil {
					fail(err)
					return
				}
				results[i] = la
			}
		}()
	}

	// Feed indexes until done or cancelled.
feed:
	for i := 0; i < n; i++ {
		select {
		case indexes <- i:
		case <-gridCtx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
