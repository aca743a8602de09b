package domain

import "strings"

// Table is a raw tabular dataset read from one device CSV: an ordered,
// file-dependent set of named columns over rows of string cells. Blank cells
// and NaN spellings are nulls.
type Table struct {
	columns  []string
	colIndex map[string]int
	rows     [][]string
}

// NewTable builds a Table from a header row and data rows. Rows shorter than
// the header are padded with null cells; longer rows are truncated.
func NewTable(columns []string, rows [][]string) *Table {
	idx := make(map[string]int, len(columns))
	for i, col := range columns {
		idx[col] = i
	}
	normalized := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == len(columns) {
			normalized[i] = row
			continue
		}
		padded := make([]string, len(columns))
		copy(padded, row)
		normalized[i] = padded
	}
	return &Table{columns: columns, colIndex: idx, rows: normalized}
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.rows) }

// HasColumn reports whether the table contains a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIndex[name]
	return ok
}

func (t *Table) cell(row, col int) string { return t.rows[row][col] }

// isNull reports whether a cell holds no value. CSV exports leave missing
// values empty; "NaN" and "NA" spellings appear in some files.
func isNull(cell string) bool {
	switch strings.TrimSpace(cell) {
	case "", "NaN", "nan", "NA":
		return true
	}
	return false
}
