package pipeline

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caderidris/senseurcity-etl/internal/domain"
	"github.com/caderidris/senseurcity-etl/internal/observability"
	"github.com/caderidris/senseurcity-etl/internal/store"
	"github.com/caderidris/senseurcity-etl/internal/zenodo"
)

// fakeStore counts the records each stream delivers and remembers which
// files were marked processed.
type fakeStore struct {
	processed  map[string]bool
	marked     []string
	streams    map[string]int64
	failStream string
	loadErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		processed: make(map[string]bool),
		streams:   make(map[string]int64),
	}
}

func (f *fakeStore) drain(stream string, n int64) (store.Result, error) {
	if f.failStream == stream {
		return store.Result{}, f.loadErr
	}
	f.streams[stream] += n
	return store.Result{Read: n, Inserted: n}, nil
}

func countSeq[T any](recs iter.Seq[T]) int64 {
	var n int64
	for range recs {
		n++
	}
	return n
}

func countSeq2[T any](recs iter.Seq2[T, error]) (int64, error) {
	var n int64
	for _, err := range recs {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (f *fakeStore) LoadMeasurements(_ context.Context, recs iter.Seq[domain.MeasurementRecord]) (store.Result, error) {
	return f.drain("measurement", countSeq(recs))
}

func (f *fakeStore) LoadValues(_ context.Context, recs iter.Seq[domain.ValueRecord]) (store.Result, error) {
	return f.drain("value", countSeq(recs))
}

func (f *fakeStore) LoadFlags(_ context.Context, recs iter.Seq[domain.FlagRecord]) (store.Result, error) {
	return f.drain("flag", countSeq(recs))
}

func (f *fakeStore) LoadColocations(_ context.Context, recs iter.Seq[domain.ColocationRecord]) (store.Result, error) {
	return f.drain("colocation", countSeq(recs))
}

func (f *fakeStore) LoadReferenceMeasurements(_ context.Context, recs iter.Seq[domain.MeasurementRecord]) (store.Result, error) {
	return f.drain("ref_measurement", countSeq(recs))
}

func (f *fakeStore) LoadReferenceValues(_ context.Context, recs iter.Seq2[domain.ValueRecord, error]) (store.Result, error) {
	n, err := countSeq2(recs)
	if err != nil {
		return store.Result{Read: n}, err
	}
	return f.drain("ref_value", n)
}

func (f *fakeStore) LoadDeviceHeaders(_ context.Context, recs iter.Seq[domain.HeaderRecord]) (store.Result, error) {
	return f.drain("device_header", countSeq(recs))
}

func (f *fakeStore) LoadReferenceHeaders(_ context.Context, recs iter.Seq2[domain.HeaderRecord, error]) (store.Result, error) {
	n, err := countSeq2(recs)
	if err != nil {
		return store.Result{Read: n}, err
	}
	return f.drain("ref_header", n)
}

func (f *fakeStore) ProcessedFiles(_ context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(f.processed))
	for k, v := range f.processed {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) MarkProcessed(_ context.Context, filename string, _ time.Time) error {
	f.marked = append(f.marked, filename)
	return nil
}

var deviceColumns = []string{"date", "Location.ID", "SHT31TE", "SHT31TE_flag", "Ref.NO2"}

func deviceFile(name string, rows ...[]string) zenodo.File {
	return zenodo.File{Name: name, Table: domain.NewTable(deviceColumns, rows)}
}

func goodFile(name string) zenodo.File {
	return deviceFile(name,
		[]string{"2020-01-01 00:00:00", "ANT_R801", "12.5", "", "31.2"},
		[]string{"2020-01-01 01:00:00", "", "12.1", "W", ""},
	)
}

func filesOf(files ...zenodo.File) iter.Seq2[zenodo.File, error] {
	return func(yield func(zenodo.File, error) bool) {
		for _, f := range files {
			if !yield(f, nil) {
				return
			}
		}
	}
}

func newTestPipeline(st RecordStore, opts Options) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, logger, observability.NewMetricsForTesting(), clockwork.NewFakeClock(), opts)
}

func TestRun_LoadsFile(t *testing.T) {
	st := newFakeStore()
	p := newTestPipeline(st, Options{})

	require.Error(t, p.CheckReadiness(context.Background()), "not ready before first file")

	summary, err := p.Run(context.Background(), filesOf(goodFile("Antwerp_402B00")))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, []string{"Antwerp_402B00"}, st.marked)
	assert.NoError(t, p.CheckReadiness(context.Background()))

	// Both rows become observation points; only the co-located row reaches
	// the reference streams.
	assert.Equal(t, int64(2), st.streams["measurement"])
	assert.Equal(t, int64(1), st.streams["ref_measurement"])
	assert.Equal(t, int64(1), st.streams["ref_value"])
	assert.Equal(t, store.Result{Read: 2, Inserted: 2}, summary.Streams["measurement"])
}

func TestRun_SkipsProcessedFiles(t *testing.T) {
	st := newFakeStore()
	st.processed["Antwerp_402B00"] = true

	p := newTestPipeline(st, Options{})
	summary, err := p.Run(context.Background(), filesOf(goodFile("Antwerp_402B00")))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Processed)
	assert.Empty(t, st.marked)
	assert.Empty(t, st.streams)
	assert.NoError(t, p.CheckReadiness(context.Background()), "skip still counts as handled")
}

func TestRun_ForceReloadsProcessedFiles(t *testing.T) {
	st := newFakeStore()
	st.processed["Antwerp_402B00"] = true

	p := newTestPipeline(st, Options{Force: true})
	summary, err := p.Run(context.Background(), filesOf(goodFile("Antwerp_402B00")))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, []string{"Antwerp_402B00"}, st.marked)
}

func TestRun_BadFileDoesNotStopRun(t *testing.T) {
	bad := zenodo.File{
		Name:  "Antwerp_4029A6",
		Table: domain.NewTable([]string{"time", "Location.ID"}, [][]string{{"2020-01-01 00:00:00", ""}}),
	}

	st := newFakeStore()
	p := newTestPipeline(st, Options{})
	summary, err := p.Run(context.Background(), filesOf(bad, goodFile("Antwerp_402B00")))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, []string{"Antwerp_402B00"}, st.marked)
}

func TestRun_UnknownCityIsDataError(t *testing.T) {
	// A co-location site whose prefix maps to no campaign city poisons the
	// reference streams of that file only.
	bad := deviceFile("Antwerp_4029A6",
		[]string{"2020-01-01 00:00:00", "BRU_R1", "12.5", "", "31.2"},
	)

	st := newFakeStore()
	p := newTestPipeline(st, Options{})
	summary, err := p.Run(context.Background(), filesOf(bad, goodFile("Antwerp_402B00")))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Processed)
	assert.NotContains(t, st.marked, "Antwerp_4029A6")
}

func TestRun_StoreErrorAborts(t *testing.T) {
	st := newFakeStore()
	st.failStream = "value"
	st.loadErr = errors.New("database is locked")

	p := newTestPipeline(st, Options{})
	summary, err := p.Run(context.Background(), filesOf(goodFile("Antwerp_402B00"), goodFile("Oslo_64A291")))
	require.Error(t, err)
	assert.ErrorIs(t, err, st.loadErr)
	assert.Contains(t, err.Error(), "Antwerp_402B00")

	assert.Zero(t, summary.Processed)
	assert.Empty(t, st.marked)
}

func TestRun_ArchiveErrorAborts(t *testing.T) {
	archiveErr := errors.New("corrupt zip entry")
	files := func(yield func(zenodo.File, error) bool) {
		if !yield(goodFile("Antwerp_402B00"), nil) {
			return
		}
		yield(zenodo.File{}, archiveErr)
	}

	st := newFakeStore()
	p := newTestPipeline(st, Options{})
	summary, err := p.Run(context.Background(), files)
	require.Error(t, err)
	assert.ErrorIs(t, err, archiveErr)
	assert.Equal(t, 1, summary.Processed, "files before the failure stay loaded")
}

func TestRun_CustomDateColumn(t *testing.T) {
	file := zenodo.File{
		Name: "Antwerp_402B00",
		Table: domain.NewTable(
			[]string{"timestamp", "Location.ID", "SHT31TE", "SHT31TE_flag"},
			[][]string{{"2020-01-01 00:00:00", "", "12.5", ""}},
		),
	}

	st := newFakeStore()
	p := newTestPipeline(st, Options{Classify: domain.ClassifyOptions{DateColumn: "timestamp"}})
	summary, err := p.Run(context.Background(), filesOf(file))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
}
