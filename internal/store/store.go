package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/caderidris/senseurcity-etl/internal/catalog"
)

// DefaultBatchSize is the number of records inserted per statement when the
// caller does not pick one.
const DefaultBatchSize = 1000

// ErrUnsupportedDriver reports a database URL whose scheme maps to no known
// driver.
var ErrUnsupportedDriver = errors.New("unsupported database url")

// Options tunes how the store connects and loads.
type Options struct {
	// Schema is the PostgreSQL schema to create tables in. Ignored for
	// SQLite, which has no schemas.
	Schema string
	// BatchSize is the number of records per insert statement; zero means
	// DefaultBatchSize.
	BatchSize int
}

// Store wraps the database connection and the batched, conflict-skipping
// loaders for each record stream.
type Store struct {
	db        *gorm.DB
	logger    *slog.Logger
	batchSize int
}

// Open connects to the database named by dbURL. Supported forms are
// "sqlite:<path>" (or a bare path, or ":memory:") and a "postgres://" or
// "postgresql://" URL. For PostgreSQL the schema from opts is created if it
// does not exist and all tables are placed in it.
func Open(dbURL string, opts Options, logger *slog.Logger) (*Store, error) {
	dialector, postgresql, err := dialectorFor(dbURL)
	if err != nil {
		return nil, err
	}

	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	}
	if postgresql && opts.Schema != "" {
		cfg.NamingStrategy = schema.NamingStrategy{
			SingularTable: true,
			TablePrefix:   opts.Schema + ".",
		}
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if postgresql && opts.Schema != "" {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", opts.Schema)).Error; err != nil {
			return nil, fmt.Errorf("create schema %s: %w", opts.Schema, err)
		}
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger.Debug("database opened", "postgresql", postgresql, "batch_size", batchSize)
	return &Store{db: db, logger: logger, batchSize: batchSize}, nil
}

func dialectorFor(dbURL string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return postgres.Open(dbURL), true, nil
	case strings.HasPrefix(dbURL, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dbURL, "sqlite:")), false, nil
	case dbURL == ":memory:", !strings.Contains(dbURL, "://"):
		return sqlite.Open(dbURL), false, nil
	}
	return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedDriver, dbURL)
}

// Migrate creates or updates every table of the star schema.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SyncCatalogs inserts the bundled device, header and unit conversion
// catalogs, skipping entries already present.
func (s *Store) SyncCatalogs(ctx context.Context) error {
	devices, err := catalog.Devices()
	if err != nil {
		return err
	}
	headers, err := catalog.Headers()
	if err != nil {
		return err
	}
	conversions, err := catalog.UnitConversions()
	if err != nil {
		return err
	}

	deviceRows := make([]DimDevice, 0, len(devices))
	for _, d := range devices {
		deviceRows = append(deviceRows, DimDevice{
			Key:       d.Key,
			Name:      d.Name,
			ShortName: d.ShortName,
			Dataset:   d.Dataset,
			Reference: d.Reference,
		})
	}
	headerRows := make([]DimHeader, 0, len(headers))
	for _, h := range headers {
		headerRows = append(headerRows, DimHeader{
			Header:    h.Header,
			Parameter: h.Parameter,
			Unit:      h.Unit,
			Supplier:  otherString(h.Other, "supplier"),
			Sensor:    otherString(h.Other, "sensor"),
			Type:      otherString(h.Other, "type"),
		})
	}
	conversionRows := make([]DimUnitConversion, 0, len(conversions))
	for _, c := range conversions {
		conversionRows = append(conversionRows, DimUnitConversion{
			UnitA:     c.UnitA,
			UnitB:     c.UnitB,
			Parameter: c.Parameter,
			Scale:     c.Scale,
		})
	}

	if err := s.insertSkippingConflicts(ctx, &deviceRows); err != nil {
		return fmt.Errorf("sync device catalog: %w", err)
	}
	if err := s.insertSkippingConflicts(ctx, &headerRows); err != nil {
		return fmt.Errorf("sync header catalog: %w", err)
	}
	if err := s.insertSkippingConflicts(ctx, &conversionRows); err != nil {
		return fmt.Errorf("sync unit conversion catalog: %w", err)
	}
	s.logger.Debug("catalogs synced",
		"devices", len(deviceRows), "headers", len(headerRows), "conversions", len(conversionRows))
	return nil
}

func otherString(other map[string]any, key string) string {
	v, _ := other[key].(string)
	return v
}

// ProcessedFiles returns the set of archive filenames already loaded.
func (s *Store) ProcessedFiles(ctx context.Context) (map[string]bool, error) {
	var rows []MetaFilesProcessed
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list processed files: %w", err)
	}
	processed := make(map[string]bool, len(rows))
	for _, row := range rows {
		processed[row.Filename] = true
	}
	return processed, nil
}

// MarkProcessed records that filename was fully loaded at ts.
func (s *Store) MarkProcessed(ctx context.Context, filename string, ts time.Time) error {
	row := MetaFilesProcessed{Filename: filename, Timestamp: ts}
	if err := s.insertSkippingConflicts(ctx, &row); err != nil {
		return fmt.Errorf("mark %s processed: %w", filename, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
