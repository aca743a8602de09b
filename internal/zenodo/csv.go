package zenodo

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/caderidris/senseurcity-etl/internal/domain"
)

// ParseCSV reads a device CSV into a raw table. The first record is the
// header row; the column set varies file to file and is classified later.
func ParseCSV(r io.Reader) (*domain.Table, error) {
	reader := csv.NewReader(r)
	// Some exports have ragged trailing columns; NewTable pads short rows.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, record)
	}
	return domain.NewTable(header, rows), nil
}
