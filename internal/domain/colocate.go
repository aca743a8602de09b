package domain

import (
	"iter"
	"sort"
	"time"
)

// Colocations run-length-encodes the location column into contiguous
// co-location intervals, one per maximal run of identical non-blank location
// values, sorted ascending by start date. A blank location breaks a run, so
// re-entering the same site after a gap opens a new interval: physical
// re-visits are distinct co-location periods. A single-row run yields
// StartDate == EndDate.
//
// The pass depends on arrival order only; start and end are tracked as the
// min and max timestamp within each run.
func (c *ClassifiedTable) Colocations() iter.Seq[ColocationRecord] {
	return func(yield func(ColocationRecord) bool) {
		intervals := c.colocationIntervals()
		for _, rec := range intervals {
			if !yield(rec) {
				return
			}
		}
	}
}

func (c *ClassifiedTable) colocationIntervals() []ColocationRecord {
	var (
		intervals []ColocationRecord
		current   string
		start     time.Time
		end       time.Time
		open      bool
	)

	closeRun := func() {
		if open {
			intervals = append(intervals, ColocationRecord{
				DeviceKey: c.name,
				OtherKey:  current,
				StartDate: start,
				EndDate:   end,
			})
			open = false
		}
	}

	for i, loc := range c.locations {
		if loc != current {
			closeRun()
			current = loc
			if loc != "" {
				start, end = c.timestamps[i], c.timestamps[i]
				open = true
				continue
			}
		}
		if !open {
			continue
		}
		ts := c.timestamps[i]
		if ts.Before(start) {
			start = ts
		}
		if ts.After(end) {
			end = ts
		}
	}
	closeRun()

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].StartDate.Before(intervals[j].StartDate)
	})
	return intervals
}
