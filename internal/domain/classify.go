package domain

import (
	"fmt"
	"strings"
	"time"
)

// Column naming conventions of the SensEURCity CSV exports.
const (
	DefaultDateColumn     = "date"
	DefaultLocationColumn = "Location.ID"

	// ReferencePrefix marks columns copied from a co-located reference monitor.
	ReferencePrefix = "Ref."
	// FlagSuffix marks the quality flag column paired with a measurement column.
	FlagSuffix = "_flag"
)

// Derived identity hashes are stored under these column names, so neither
// may be chosen as the date or location column.
const (
	PointHashColumn    = "point_hash"
	RefPointHashColumn = "ref_point_hash"
)

// dateLayouts are tried in order when parsing the date column. The dataset
// itself is homogeneous ("2006-01-02 15:04:05"); the alternatives cover
// hand-built fixtures.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ValidationError reports an unusable date or location column choice.
// Classification fails before any record stream is produced.
type ValidationError struct {
	Column   string // the offending column name
	File     string // device/file name being classified
	Kind     string // "date" or "location"
	Reserved bool   // true when Column collides with an identity key name
}

func (e *ValidationError) Error() string {
	if e.Reserved {
		return fmt.Sprintf(
			"'%s' is reserved for derived identity keys. Expected a different name for the %s column.",
			e.Column, e.Kind,
		)
	}
	return fmt.Sprintf(
		"'%s' is not present in %s. Expected a valid name for the %s column.",
		e.Column, e.File, e.Kind,
	)
}

// ClassifyOptions overrides the default date and location column names.
// Zero values select the defaults.
type ClassifyOptions struct {
	DateColumn     string
	LocationColumn string
}

// ClassifiedTable is the immutable result of classifying one raw table for
// one device: the column role partition, parsed timestamps, normalized
// location values and precomputed identity hashes. All record streams are
// derived from it on demand; it is never mutated after construction.
type ClassifiedTable struct {
	name           string
	dateColumn     string
	locationColumn string

	measurementCols []string // columns with a "_flag" sibling, file order
	flagCols        []string
	referenceCols   []string // includes the location column
	metadataCols    []string
	flagFor         map[string]string // measurement column -> its flag column

	table      *Table
	timestamps []time.Time
	locations  []string // normalized; "" while not co-located
	pointHash  []string
	refHash    []string // "" while not co-located
}

// Classify partitions the table's columns into measurement, flag, reference
// and metadata roles, parses the date column and derives per-row identity
// hashes. The role sets are pairwise disjoint and, with the date column,
// cover every column of the input.
//
// A measurement column is exactly a column with a same-named FlagSuffix
// sibling; non-reference, non-flag columns without one are metadata. The
// reshaper relies on the same policy when melting.
func Classify(name string, table *Table, opts ClassifyOptions) (*ClassifiedTable, error) {
	dateCol := opts.DateColumn
	if dateCol == "" {
		dateCol = DefaultDateColumn
	}
	locationCol := opts.LocationColumn
	if locationCol == "" {
		locationCol = DefaultLocationColumn
	}

	if err := validateColumn(name, table, dateCol, "date"); err != nil {
		return nil, err
	}
	if err := validateColumn(name, table, locationCol, "location"); err != nil {
		return nil, err
	}

	c := &ClassifiedTable{
		name:           name,
		dateColumn:     dateCol,
		locationColumn: locationCol,
		flagFor:        make(map[string]string),
		table:          table,
	}

	if err := c.parseIndex(); err != nil {
		return nil, err
	}
	c.partitionColumns()
	c.deriveHashes()

	return c, nil
}

func validateColumn(file string, table *Table, column, kind string) error {
	if column == PointHashColumn || column == RefPointHashColumn {
		return &ValidationError{Column: column, File: file, Kind: kind, Reserved: true}
	}
	if !table.HasColumn(column) {
		return &ValidationError{Column: column, File: file, Kind: kind}
	}
	return nil
}

// parseIndex parses the date column into the row index and normalizes the
// location column. Every row must carry a timestamp; a blank location means
// the device was deployed in the field.
func (c *ClassifiedTable) parseIndex() error {
	dateIdx := c.table.colIndex[c.dateColumn]
	locIdx := c.table.colIndex[c.locationColumn]

	c.timestamps = make([]time.Time, c.table.NumRows())
	c.locations = make([]string, c.table.NumRows())

	for i := range c.table.rows {
		cell := c.table.cell(i, dateIdx)
		ts, err := parseTimestamp(cell)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", c.name, i, err)
		}
		c.timestamps[i] = ts

		if loc := c.table.cell(i, locIdx); !isNull(loc) {
			c.locations[i] = NormalizeLocation(loc)
		}
	}
	return nil
}

func parseTimestamp(cell string) (time.Time, error) {
	if isNull(cell) {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	cell = strings.TrimSpace(cell)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, cell); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", cell)
}

// NormalizeLocation makes a reference site identifier safe to use as a key:
// surrounding whitespace is stripped and "/" and "-" become "_".
func NormalizeLocation(location string) string {
	location = strings.TrimSpace(location)
	location = strings.ReplaceAll(location, "/", "_")
	return strings.ReplaceAll(location, "-", "_")
}

// partitionColumns applies the role rules in precedence order: reference
// prefix first, then flag suffix, then the measurement/metadata split on
// flag siblings. Column order within each role follows the file.
func (c *ClassifiedTable) partitionColumns() {
	flagSet := make(map[string]bool)
	var candidates []string

	for _, col := range c.table.columns {
		switch {
		case col == c.dateColumn:
		case col == c.locationColumn:
			c.referenceCols = append(c.referenceCols, col)
		case strings.HasPrefix(col, ReferencePrefix):
			c.referenceCols = append(c.referenceCols, col)
		case strings.HasSuffix(col, FlagSuffix):
			c.flagCols = append(c.flagCols, col)
			flagSet[col] = true
		default:
			candidates = append(candidates, col)
		}
	}

	for _, col := range candidates {
		if flag := col + FlagSuffix; flagSet[flag] {
			c.measurementCols = append(c.measurementCols, col)
			c.flagFor[col] = flag
		} else {
			c.metadataCols = append(c.metadataCols, col)
		}
	}
}

func (c *ClassifiedTable) deriveHashes() {
	c.pointHash = make([]string, len(c.timestamps))
	c.refHash = make([]string, len(c.timestamps))
	for i, ts := range c.timestamps {
		c.pointHash[i] = PointHash(c.name, ts)
		if c.locations[i] != "" {
			c.refHash[i] = PointHash(c.locations[i], ts)
		}
	}
}

// Name returns the device/file name the table was classified for.
func (c *ClassifiedTable) Name() string { return c.name }

// DateColumn returns the name of the timestamp column.
func (c *ClassifiedTable) DateColumn() string { return c.dateColumn }

// LocationColumn returns the name of the co-location site column.
func (c *ClassifiedTable) LocationColumn() string { return c.locationColumn }

// MeasurementColumns returns the device measurement columns in file order.
func (c *ClassifiedTable) MeasurementColumns() []string { return cloneStrings(c.measurementCols) }

// FlagColumns returns the quality flag columns in file order.
func (c *ClassifiedTable) FlagColumns() []string { return cloneStrings(c.flagCols) }

// ReferenceColumns returns the reference monitor columns, location column
// included, in file order.
func (c *ClassifiedTable) ReferenceColumns() []string { return cloneStrings(c.referenceCols) }

// MetadataColumns returns the columns left over after classification.
func (c *ClassifiedTable) MetadataColumns() []string { return cloneStrings(c.metadataCols) }

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
