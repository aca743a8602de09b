package domain

import (
	"iter"
	"strconv"
	"strings"
)

// FlagValid is the sentinel recorded when a flag column holds no value for a
// row: the measurement was not flagged, so it is valid.
const FlagValid = "Valid"

// storageSafeHeader rewrites a header for storage: "." would collide with
// SQL qualified-name syntax, so it becomes "_".
func storageSafeHeader(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// Measurements yields one record per row: the device's observation point at
// that timestamp. Each call returns a fresh, restartable sequence over the
// same immutable table, in row order.
func (c *ClassifiedTable) Measurements() iter.Seq[MeasurementRecord] {
	return func(yield func(MeasurementRecord) bool) {
		for i := range c.timestamps {
			rec := MeasurementRecord{
				PointHash: c.pointHash[i],
				Timestamp: c.timestamps[i],
				DeviceKey: c.name,
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Values melts the measurement columns long, one record per non-null numeric
// cell, in row order. Headers are storage-safe.
func (c *ClassifiedTable) Values() iter.Seq[ValueRecord] {
	return func(yield func(ValueRecord) bool) {
		for i := range c.timestamps {
			for _, col := range c.measurementCols {
				v, ok := c.numericCell(i, col)
				if !ok {
					continue
				}
				rec := ValueRecord{
					PointHash: c.pointHash[i],
					Header:    storageSafeHeader(col),
					Value:     v,
				}
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// Flags melts the flag columns long, one record per row and flag column.
// Null cells broadcast the FlagValid sentinel so every observation point
// carries the full flag status.
func (c *ClassifiedTable) Flags() iter.Seq[FlagRecord] {
	return func(yield func(FlagRecord) bool) {
		for i := range c.timestamps {
			for _, col := range c.flagCols {
				value := c.table.cell(i, c.table.colIndex[col])
				if isNull(value) {
					value = FlagValid
				} else {
					value = strings.TrimSpace(value)
				}
				rec := FlagRecord{
					PointHash: c.pointHash[i],
					Flag:      storageSafeHeader(col),
					Value:     value,
				}
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// ReferenceMeasurements yields one record per co-located row: the reference
// site's observation point, keyed by the reference point hash.
func (c *ClassifiedTable) ReferenceMeasurements() iter.Seq[MeasurementRecord] {
	return func(yield func(MeasurementRecord) bool) {
		for i := range c.timestamps {
			if c.locations[i] == "" {
				continue
			}
			rec := MeasurementRecord{
				PointHash: c.refHash[i],
				Timestamp: c.timestamps[i],
				DeviceKey: c.locations[i],
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// ReferenceValues melts the reference columns long for co-located rows.
// Consecutive duplicate readings per column are suppressed before melting:
// reference monitors report at a coarser cadence than the devices, so only
// changes are recorded. Headers pass through DisambiguateReferenceHeader;
// an unmapped site prefix stops the sequence with the lookup error.
func (c *ClassifiedTable) ReferenceValues() iter.Seq2[ValueRecord, error] {
	return func(yield func(ValueRecord, error) bool) {
		for i := range c.timestamps {
			if c.locations[i] == "" {
				continue
			}
			for _, col := range c.referenceCols {
				if col == c.locationColumn {
					continue
				}
				if c.suppressed(i, col) {
					continue
				}
				v, ok := c.numericCell(i, col)
				if !ok {
					continue
				}
				header, err := DisambiguateReferenceHeader(col, c.locations[i])
				if err != nil {
					yield(ValueRecord{}, err)
					return
				}
				rec := ValueRecord{
					PointHash: c.refHash[i],
					Header:    header,
					Value:     v,
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

// DeviceHeaders catalogs the device's measurement headers together with
// their flag columns.
func (c *ClassifiedTable) DeviceHeaders() iter.Seq[HeaderRecord] {
	return func(yield func(HeaderRecord) bool) {
		for _, col := range c.measurementCols {
			rec := HeaderRecord{
				DeviceKey: c.name,
				Header:    storageSafeHeader(col),
				Flag:      storageSafeHeader(c.flagFor[col]),
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// ReferenceHeaders catalogs the distinct (site, header) pairs observed in
// the reference columns, in first-seen order. Reference headers carry no
// flag column.
func (c *ClassifiedTable) ReferenceHeaders() iter.Seq2[HeaderRecord, error] {
	return func(yield func(HeaderRecord, error) bool) {
		seen := make(map[HeaderRecord]bool)
		for i := range c.timestamps {
			if c.locations[i] == "" {
				continue
			}
			for _, col := range c.referenceCols {
				if col == c.locationColumn {
					continue
				}
				if _, ok := c.numericCell(i, col); !ok {
					continue
				}
				header, err := DisambiguateReferenceHeader(col, c.locations[i])
				if err != nil {
					yield(HeaderRecord{}, err)
					return
				}
				rec := HeaderRecord{DeviceKey: c.locations[i], Header: header}
				if seen[rec] {
					continue
				}
				seen[rec] = true
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

// numericCell parses the cell at (row, col) as a float. Null and
// unparseable cells report no value.
func (c *ClassifiedTable) numericCell(row int, col string) (float64, bool) {
	cell := c.table.cell(row, c.table.colIndex[col])
	if isNull(cell) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// suppressed reports whether the reference cell at (row, col) equals the
// immediately following row's cell for the same column. The earlier of the
// pair is dropped so each run of identical readings keeps its last row.
func (c *ClassifiedTable) suppressed(row int, col string) bool {
	if row+1 >= c.table.NumRows() {
		return false
	}
	idx := c.table.colIndex[col]
	cur, next := c.table.cell(row, idx), c.table.cell(row+1, idx)
	if isNull(cur) || isNull(next) {
		return false
	}
	if cur == next {
		return true
	}
	a, errA := strconv.ParseFloat(strings.TrimSpace(cur), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(next), 64)
	return errA == nil && errB == nil && a == b
}
