package tle

import "time"

// Entry is a single satellite's two-line element set with its derived epoch.
// Immutable once parsed.
type Entry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// EpochRange is the span of element epochs in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is a complete set of element entries from one fetch.
type Dataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []Entry
}

// Find returns the entry with the given NORAD catalog number, or false.
func (d *Dataset) Find(noradID int) (Entry, bool) {
	for _, e := range d.Satellites {
		if e.NORADID == noradID {
			return e, true
		}
	}
	return Entry{}, false
}

// NewDataset builds a Dataset from parsed entries, computing the epoch range.
func NewDataset(source string, fetchedAt time.Time, entries []Entry) *Dataset {
	ds := &Dataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: entries,
	}
	if len(entries) > 0 {
		ds.EpochRange.Min = entries[0].Epoch
		ds.EpochRange.Max = entries[0].Epoch
		for _, e := range entries[1:] {
			if e.Epoch.Before(ds.EpochRange.Min) {
				ds.EpochRange.Min = e.Epoch
			}
			if e.Epoch.After(ds.EpochRange.Max) {
				ds.EpochRange.Max = e.Epoch
			}
		}
	}
	return ds
}
