package store

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caderidris/senseurcity-etl/internal/domain"
)

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(":memory:", opts, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate())
	return s
}

func seqOf[T any](items ...T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

func measurement(hash, device string, hour int) domain.MeasurementRecord {
	base := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	return domain.MeasurementRecord{
		PointHash: hash,
		Timestamp: base.Add(time.Duration(hour) * time.Hour),
		DeviceKey: device,
	}
}

func value(hash, header string, v float64) domain.ValueRecord {
	return domain.ValueRecord{PointHash: hash, Header: header, Value: v}
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := Open("mysql://user@host/db", Options{}, logger)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestSyncCatalogs(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	require.NoError(t, s.SyncCatalogs(ctx))

	var devices, headers, conversions int64
	require.NoError(t, s.db.Model(&DimDevice{}).Count(&devices).Error)
	require.NoError(t, s.db.Model(&DimHeader{}).Count(&headers).Error)
	require.NoError(t, s.db.Model(&DimUnitConversion{}).Count(&conversions).Error)
	assert.Equal(t, int64(12), devices)
	assert.Equal(t, int64(14), headers)
	assert.Equal(t, int64(6), conversions)

	// Syncing again inserts nothing new.
	require.NoError(t, s.SyncCatalogs(ctx))
	var again int64
	require.NoError(t, s.db.Model(&DimDevice{}).Count(&again).Error)
	assert.Equal(t, devices, again)
}

func TestLoadMeasurements_Idempotent(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()
	recs := []domain.MeasurementRecord{
		measurement("aaa", "Antwerp_402B00", 0),
		measurement("bbb", "Antwerp_402B00", 1),
		measurement("ccc", "Oslo_64A291", 0),
	}

	res, err := s.LoadMeasurements(ctx, seqOf(recs...))
	require.NoError(t, err)
	assert.Equal(t, Result{Read: 3, Inserted: 3, Skipped: 0}, res)

	res, err = s.LoadMeasurements(ctx, seqOf(recs...))
	require.NoError(t, err)
	assert.Equal(t, Result{Read: 3, Inserted: 0, Skipped: 3}, res)
}

func TestLoadValues_Batched(t *testing.T) {
	s := openTestStore(t, Options{BatchSize: 2})
	ctx := context.Background()

	res, err := s.LoadValues(ctx, seqOf(
		value("aaa", "SHT31TE", 12.5),
		value("aaa", "BMP280", 1013.0),
		value("bbb", "SHT31TE", 12.1),
		value("bbb", "BMP280", 1012.5),
		value("ccc", "SHT31TE", 11.9),
	))
	require.NoError(t, err)
	assert.Equal(t, Result{Read: 5, Inserted: 5, Skipped: 0}, res)

	// A repeated (point, header) pair is skipped, a new one inserted.
	res, err = s.LoadValues(ctx, seqOf(
		value("aaa", "SHT31TE", 12.5),
		value("ccc", "BMP280", 1011.8),
	))
	require.NoError(t, err)
	assert.Equal(t, Result{Read: 2, Inserted: 1, Skipped: 1}, res)
}

func TestLoadReferenceValues_StreamError(t *testing.T) {
	s := openTestStore(t, Options{BatchSize: 1})
	ctx := context.Background()
	streamErr := errors.New("unmapped header")

	recs := func(yield func(domain.ValueRecord, error) bool) {
		if !yield(value("aaa", "Ref_NO2_ANT", 31.5), nil) {
			return
		}
		yield(domain.ValueRecord{}, streamErr)
	}

	res, err := s.LoadReferenceValues(ctx, recs)
	require.ErrorIs(t, err, streamErr)

	// The batch flushed before the failure stays loaded.
	assert.Equal(t, Result{Read: 1, Inserted: 1, Skipped: 0}, res)
	var count int64
	require.NoError(t, s.db.Model(&FactRefValue{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLoadFlags_ConflictOnPointAndFlag(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	res, err := s.LoadFlags(ctx, seqOf(
		domain.FlagRecord{PointHash: "aaa", Flag: "SHT31TE_flag", Value: "W"},
		domain.FlagRecord{PointHash: "aaa", Flag: "Valid", Value: "Valid"},
	))
	require.NoError(t, err)
	assert.Equal(t, Result{Read: 2, Inserted: 2}, res)

	res, err = s.LoadFlags(ctx, seqOf(
		domain.FlagRecord{PointHash: "aaa", Flag: "Valid", Value: "Valid"},
	))
	require.NoError(t, err)
	assert.Equal(t, Result{Read: 1, Skipped: 1}, res)
}

func TestLoadColocations(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	res, err := s.LoadColocations(ctx, seqOf(domain.ColocationRecord{
		DeviceKey: "Antwerp_402B00",
		OtherKey:  "ANT_R801",
		StartDate: start,
		EndDate:   start.Add(48 * time.Hour),
	}))
	require.NoError(t, err)
	assert.Equal(t, Result{Read: 1, Inserted: 1}, res)

	var row DimColocation
	require.NoError(t, s.db.First(&row).Error)
	assert.Equal(t, "ANT_R801", row.OtherKey)
}

func TestProcessedFiles(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	processed, err := s.ProcessedFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, processed)

	ts := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkProcessed(ctx, "Antwerp_402B00", ts))
	require.NoError(t, s.MarkProcessed(ctx, "Oslo_64A291", ts))
	// Marking twice is harmless.
	require.NoError(t, s.MarkProcessed(ctx, "Antwerp_402B00", ts.Add(time.Hour)))

	processed, err = s.ProcessedFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Antwerp_402B00": true, "Oslo_64A291": true}, processed)
}
