// Package cache provides an in-memory cache of completed pass searches.
//
// A search over a multi-day horizon is expensive; its result is a pure
// function of the request parameters and the TLE dataset, so repeated
// requests can be served from memory. Any dataset change invalidates the
// whole cache: stale predictions must never outlive the elements that
// produced them.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/metrics"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
)

// DefaultMaxEntries bounds the cache; each entry is one full search result.
const DefaultMaxEntries = 256

// Key identifies one search request. All fields participate in equality, so
// callers must normalize times (UTC, truncated to the second) before lookup.
type Key struct {
	LatDeg        float64
	LonDeg        float64
	AltM          float64
	Start         time.Time
	Horizon       time.Duration
	MaxDistanceKm float64
}

// NormalizeKey canonicalizes the time component so equivalent requests map to
// the same entry.
func NormalizeKey(k Key) Key {
	k.Start = k.Start.UTC().Truncate(time.Second)
	return k
}

type entry struct {
	result     []passes.Pass
	insertedAt time.Time
}

// ResultCache is a bounded cache of search results tied to one TLE dataset
// generation. Safe for concurrent use.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[Key]*entry
	order      []Key // insertion order, oldest first
	maxEntries int

	// Generation marker: results are valid only for the dataset fetched at
	// this instant.
	datasetFetchedAt time.Time

	logger *slog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewResultCache creates a cache holding at most maxEntries results.
// maxEntries <= 0 selects the default.
func NewResultCache(maxEntries int, logger *slog.Logger) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResultCache{
		entries:    make(map[Key]*entry),
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// Get returns the cached result for k, if the cache holds one for the given
// dataset generation.
func (c *ResultCache) Get(k Key, datasetFetchedAt time.Time) ([]passes.Pass, bool) {
	k = NormalizeKey(k)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.datasetFetchedAt.Equal(datasetFetchedAt) {
		c.misses.Add(1)
		metrics.IncCacheMisses()
		return nil, false
	}
	e, ok := c.entries[k]
	if !ok {
		c.misses.Add(1)
		metrics.IncCacheMisses()
		return nil, false
	}
	c.hits.Add(1)
	metrics.IncCacheHits()
	return e.result, true
}

// Put stores a completed search result for the given dataset generation. A
// generation change flushes every existing entry first.
func (c *ResultCache) Put(k Key, datasetFetchedAt time.Time, result []passes.Pass, now time.Time) {
	k = NormalizeKey(k)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.datasetFetchedAt.Equal(datasetFetchedAt) {
		flushed := len(c.entries)
		c.entries = make(map[Key]*entry)
		c.order = c.order[:0]
		c.datasetFetchedAt = datasetFetchedAt
		if flushed > 0 {
			c.evictions.Add(int64(flushed))
			metrics.AddCacheEvictions(flushed)
			c.logger.Info("result cache flushed on dataset change",
				"flushed", flushed,
				"dataset_fetched_at", datasetFetchedAt.UTC().Format(time.RFC3339),
			)
		}
	}

	if _, exists := c.entries[k]; !exists {
		for len(c.entries) >= c.maxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
			c.evictions.Add(1)
			metrics.AddCacheEvictions(1)
		}
		c.order = append(c.order, k)
	}
	c.entries[k] = &entry{result: result, insertedAt: now}
	metrics.SetCacheEntries(len(c.entries))
}

// Stats holds counters for the stats endpoint.
type Stats struct {
	Entries          int       `json:"entries"`
	MaxEntries       int       `json:"max_entries"`
	Hits             int64     `json:"hits"`
	Misses           int64     `json:"misses"`
	Evictions        int64     `json:"evictions"`
	DatasetFetchedAt time.Time `json:"dataset_fetched_at"`
}

// Stats returns a snapshot of the cache counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:          len(c.entries),
		MaxEntries:       c.maxEntries,
		Hits:             c.hits.Load(),
		Misses:           c.misses.Load(),
		Evictions:        c.evictions.Load(),
		DatasetFetchedAt: c.datasetFetchedAt,
	}
}
