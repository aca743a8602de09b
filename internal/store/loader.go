package store

import (
	"context"
	"fmt"
	"iter"

	"gorm.io/gorm/clause"

	"github.com/caderidris/senseurcity-etl/internal/domain"
)

// Result summarizes one load: how many records the stream yielded, how many
// rows were newly inserted, and how many were skipped as already present.
type Result struct {
	Read     int64
	Inserted int64
	Skipped  int64
}

// Add accumulates another load into this one.
func (r *Result) Add(other Result) {
	r.Read += other.Read
	r.Inserted += other.Inserted
	r.Skipped += other.Skipped
}

// LoadMeasurements inserts device observation points, skipping hashes that
// are already present.
func (s *Store) LoadMeasurements(ctx context.Context, recs iter.Seq[domain.MeasurementRecord]) (Result, error) {
	return loadSeq(ctx, s, recs, func(r domain.MeasurementRecord) FactMeasurement {
		return FactMeasurement{PointHash: r.PointHash, Timestamp: r.Timestamp, DeviceKey: r.DeviceKey}
	})
}

// LoadValues inserts melted device measurement values.
func (s *Store) LoadValues(ctx context.Context, recs iter.Seq[domain.ValueRecord]) (Result, error) {
	return loadSeq(ctx, s, recs, func(r domain.ValueRecord) FactValue {
		return FactValue{PointHash: r.PointHash, Header: r.Header, Value: r.Value}
	})
}

// LoadFlags inserts melted quality flag values.
func (s *Store) LoadFlags(ctx context.Context, recs iter.Seq[domain.FlagRecord]) (Result, error) {
	return loadSeq(ctx, s, recs, func(r domain.FlagRecord) DimFlag {
		return DimFlag{PointHash: r.PointHash, Flag: r.Flag, Value: r.Value}
	})
}

// LoadColocations inserts co-location spans.
func (s *Store) LoadColocations(ctx context.Context, recs iter.Seq[domain.ColocationRecord]) (Result, error) {
	return loadSeq(ctx, s, recs, func(r domain.ColocationRecord) DimColocation {
		return DimColocation{
			DeviceKey: r.DeviceKey,
			OtherKey:  r.OtherKey,
			StartDate: r.StartDate,
			EndDate:   r.EndDate,
		}
	})
}

// LoadReferenceMeasurements inserts reference site observation points.
func (s *Store) LoadReferenceMeasurements(ctx context.Context, recs iter.Seq[domain.MeasurementRecord]) (Result, error) {
	return loadSeq(ctx, s, recs, func(r domain.MeasurementRecord) FactRefMeasurement {
		return FactRefMeasurement{PointHash: r.PointHash, Timestamp: r.Timestamp, LocationID: r.DeviceKey}
	})
}

// LoadReferenceValues inserts deduplicated reference readings. The stream may
// fail mid-way on an unmappable header; whatever was flushed before the
// failure stays loaded, and reloading the file later skips it.
func (s *Store) LoadReferenceValues(ctx context.Context, recs iter.Seq2[domain.ValueRecord, error]) (Result, error) {
	return loadSeq2(ctx, s, recs, func(r domain.ValueRecord) FactRefValue {
		return FactRefValue{PointHash: r.PointHash, Header: r.Header, Value: r.Value}
	})
}

// LoadDeviceHeaders inserts the header-to-device mapping of one file.
func (s *Store) LoadDeviceHeaders(ctx context.Context, recs iter.Seq[domain.HeaderRecord]) (Result, error) {
	return loadSeq(ctx, s, recs, func(r domain.HeaderRecord) DimDeviceHeader {
		return DimDeviceHeader{DeviceKey: r.DeviceKey, Header: r.Header, Flag: r.Flag}
	})
}

// LoadReferenceHeaders inserts the city-qualified header mapping of one file.
func (s *Store) LoadReferenceHeaders(ctx context.Context, recs iter.Seq2[domain.HeaderRecord, error]) (Result, error) {
	return loadSeq2(ctx, s, recs, func(r domain.HeaderRecord) DimRefHeader {
		return DimRefHeader{DeviceKey: r.DeviceKey, Header: r.Header}
	})
}

// loadSeq drains recs into the table behind M in batches, counting inserted
// versus conflict-skipped rows.
func loadSeq[R, M any](ctx context.Context, s *Store, recs iter.Seq[R], toModel func(R) M) (Result, error) {
	b := newBatcher[M](s)
	for rec := range recs {
		if err := b.add(ctx, toModel(rec)); err != nil {
			return b.result, err
		}
	}
	return b.finish(ctx)
}

// loadSeq2 is loadSeq for streams that can fail while being produced.
func loadSeq2[R, M any](ctx context.Context, s *Store, recs iter.Seq2[R, error], toModel func(R) M) (Result, error) {
	b := newBatcher[M](s)
	for rec, err := range recs {
		if err != nil {
			return b.result, err
		}
		if err := b.add(ctx, toModel(rec)); err != nil {
			return b.result, err
		}
	}
	return b.finish(ctx)
}

type batcher[M any] struct {
	store  *Store
	buf    []M
	result Result
}

func newBatcher[M any](s *Store) *batcher[M] {
	return &batcher[M]{store: s, buf: make([]M, 0, s.batchSize)}
}

func (b *batcher[M]) add(ctx context.Context, m M) error {
	b.result.Read++
	b.buf = append(b.buf, m)
	if len(b.buf) >= b.store.batchSize {
		return b.flush(ctx)
	}
	return nil
}

func (b *batcher[M]) finish(ctx context.Context) (Result, error) {
	if err := b.flush(ctx); err != nil {
		return b.result, err
	}
	return b.result, nil
}

func (b *batcher[M]) flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	tx := b.store.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&b.buf)
	if tx.Error != nil {
		return fmt.Errorf("insert batch: %w", tx.Error)
	}
	b.result.Inserted += tx.RowsAffected
	b.result.Skipped += int64(len(b.buf)) - tx.RowsAffected
	b.buf = b.buf[:0]
	return nil
}

// insertSkippingConflicts inserts rows (a pointer to a model or slice of
// models), leaving existing rows untouched.
func (s *Store) insertSkippingConflicts(ctx context.Context, rows any) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).Error
}
