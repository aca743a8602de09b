// Command inspect classifies device CSV files and reports what a load would
// produce, without touching a database: the column role partition, the record
// counts per stream and the detected co-location intervals.
//
// Usage:
//
//	go run ./cmd/inspect -csv Antwerp_402B00.csv
//	go run ./cmd/inspect -zip senseurcity.zip
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caderidris/senseurcity-etl/internal/domain"
	"github.com/caderidris/senseurcity-etl/internal/zenodo"
)

func main() {
	csvPath := flag.String("csv", "", "path to a single device CSV")
	zipPath := flag.String("zip", "", "path to a dataset archive")
	dateCol := flag.String("date", "", "date column name override")
	locationCol := flag.String("location", "", "location column name override")
	flag.Parse()

	if (*csvPath == "") == (*zipPath == "") {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "exactly one of -csv or -zip is required")
		os.Exit(2)
	}

	opts := domain.ClassifyOptions{DateColumn: *dateCol, LocationColumn: *locationCol}
	if code := run(*csvPath, *zipPath, opts); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, zipPath string, opts domain.ClassifyOptions) int {
	if csvPath != "" {
		file, err := loadCSV(csvPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		return report(file, opts)
	}

	ds, err := zenodo.OpenDataset(zipPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	defer ds.Close() //nolint:errcheck

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	code := 0
	for file, err := range ds.Files(zenodo.AllCities(), logger) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		if report(file, opts) != 0 {
			code = 1
		}
	}
	return code
}

func loadCSV(path string) (zenodo.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return zenodo.File{}, err
	}
	defer f.Close()

	table, err := zenodo.ParseCSV(f)
	if err != nil {
		return zenodo.File{}, fmt.Errorf("parse %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), ".csv")
	return zenodo.File{Name: stem, Table: table}, nil
}

func report(file zenodo.File, opts domain.ClassifyOptions) int {
	fmt.Printf("=== %s ===\n", file.Name)

	ct, err := domain.Classify(file.Name, file.Table, opts)
	if err != nil {
		fmt.Printf("  classification FAILED: %v\n\n", err)
		return 1
	}

	fmt.Printf("  rows:        %d\n", file.Table.NumRows())
	printColumns("measurement", ct.MeasurementColumns())
	printColumns("flag", ct.FlagColumns())
	printColumns("reference", ct.ReferenceColumns())
	printColumns("metadata", ct.MetadataColumns())

	fmt.Printf("  records:     %d measurements, %d values, %d flags\n",
		count(ct.Measurements()), count(ct.Values()), count(ct.Flags()))

	refValues, refErr := count2(ct.ReferenceValues())
	if refErr != nil {
		fmt.Printf("  reference streams FAILED: %v\n\n", refErr)
		return 1
	}
	fmt.Printf("  reference:   %d measurements, %d deduplicated values\n",
		count(ct.ReferenceMeasurements()), refValues)

	printColocations(ct)
	fmt.Println()
	return 0
}

func printColumns(role string, cols []string) {
	if len(cols) == 0 {
		return
	}
	fmt.Printf("  %-12s %s\n", role+":", strings.Join(cols, ", "))
}

func printColocations(ct *domain.ClassifiedTable) {
	intervals := 0
	for span := range ct.Colocations() {
		intervals++
		fmt.Printf("  co-located:  %s at %s, %s to %s\n",
			span.DeviceKey, span.OtherKey,
			span.StartDate.Format(time.DateTime), span.EndDate.Format(time.DateTime))
	}
	if intervals == 0 {
		fmt.Println("  co-located:  never")
	}
}

func count[T any](seq func(func(T) bool)) int {
	n := 0
	for range seq {
		n++
	}
	return n
}

func count2[T any](seq func(func(T, error) bool)) (int, error) {
	n := 0
	for _, err := range seq {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
