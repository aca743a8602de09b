// Package pipeline orchestrates the load: walk the archive's device CSVs,
// classify each one, melt it into record streams and push those into the
// store. Files already on record are skipped, so interrupted runs resume
// where they left off.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/caderidris/senseurcity-etl/internal/domain"
	"github.com/caderidris/senseurcity-etl/internal/observability"
	"github.com/caderidris/senseurcity-etl/internal/store"
	"github.com/caderidris/senseurcity-etl/internal/zenodo"
)

// RecordStore is the persistence surface the pipeline drives. *store.Store
// implements it.
type RecordStore interface {
	LoadMeasurements(ctx context.Context, recs iter.Seq[domain.MeasurementRecord]) (store.Result, error)
	LoadValues(ctx context.Context, recs iter.Seq[domain.ValueRecord]) (store.Result, error)
	LoadFlags(ctx context.Context, recs iter.Seq[domain.FlagRecord]) (store.Result, error)
	LoadColocations(ctx context.Context, recs iter.Seq[domain.ColocationRecord]) (store.Result, error)
	LoadReferenceMeasurements(ctx context.Context, recs iter.Seq[domain.MeasurementRecord]) (store.Result, error)
	LoadReferenceValues(ctx context.Context, recs iter.Seq2[domain.ValueRecord, error]) (store.Result, error)
	LoadDeviceHeaders(ctx context.Context, recs iter.Seq[domain.HeaderRecord]) (store.Result, error)
	LoadReferenceHeaders(ctx context.Context, recs iter.Seq2[domain.HeaderRecord, error]) (store.Result, error)

	ProcessedFiles(ctx context.Context) (map[string]bool, error)
	MarkProcessed(ctx context.Context, filename string, ts time.Time) error
}

// Options tunes a run.
type Options struct {
	// Force reloads files already marked processed. The conflict-skipping
	// loaders make this safe; it exists to finish partially loaded files.
	Force bool
	// Classify overrides the default date and location column names.
	Classify domain.ClassifyOptions
}

// Pipeline walks archive files through classify, reshape and load.
type Pipeline struct {
	store   RecordStore
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	opts    Options
	ready   atomic.Bool
}

// New creates a Pipeline with the given store and observability.
func New(st RecordStore, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, opts Options) *Pipeline {
	return &Pipeline{
		store:   st,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		opts:    opts,
	}
}

// CheckReadiness returns nil once the pipeline has handled at least one file,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not handled any files yet")
	}
	return nil
}

// Summary totals one run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	Streams   map[string]store.Result
}

// Run drains files through the store. A file whose data cannot be classified
// or mapped is logged and skipped; store and archive failures abort the run
// with the partial summary.
func (p *Pipeline) Run(ctx context.Context, files iter.Seq2[zenodo.File, error]) (Summary, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	summary := Summary{Streams: make(map[string]store.Result)}

	processed, err := p.store.ProcessedFiles(ctx)
	if err != nil {
		return summary, err
	}

	for file, err := range files {
		if err != nil {
			return summary, fmt.Errorf("read archive: %w", err)
		}
		if ctx.Err() != nil {
			p.logger.Info("run stopping", "reason", ctx.Err())
			return summary, ctx.Err()
		}

		if processed[file.Name] && !p.opts.Force {
			p.logger.Info("file already processed, skipping", "file", file.Name)
			p.metrics.FilesSkipped.Inc()
			summary.Skipped++
			p.ready.Store(true)
			continue
		}

		if err := p.loadFile(ctx, file, &summary); err != nil {
			if !isDataError(err) {
				return summary, fmt.Errorf("load %s: %w", file.Name, err)
			}
			p.logger.Error("file failed, continuing with remaining files",
				"file", file.Name, "error", err)
			p.metrics.FilesFailed.Inc()
			summary.Failed++
			continue
		}

		p.metrics.FilesProcessed.Inc()
		summary.Processed++
		p.ready.Store(true)
	}

	p.logger.Info("run complete",
		"processed", summary.Processed, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

// isDataError reports whether the failure is confined to one file's content
// rather than the store or archive.
func isDataError(err error) bool {
	var verr *domain.ValidationError
	return errors.As(err, &verr) || errors.Is(err, domain.ErrUnknownCityPrefix)
}

func (p *Pipeline) loadFile(ctx context.Context, file zenodo.File, summary *Summary) error {
	start := p.clock.Now()

	ct, err := domain.Classify(file.Name, file.Table, p.opts.Classify)
	if err != nil {
		return err
	}
	p.metrics.RowsRead.Add(float64(file.Table.NumRows()))
	p.logger.Debug("file classified",
		"file", file.Name,
		"rows", file.Table.NumRows(),
		"measurement_columns", len(ct.MeasurementColumns()),
		"reference_columns", len(ct.ReferenceColumns()),
	)

	loads := []struct {
		stream string
		load   func() (store.Result, error)
	}{
		{"measurement", func() (store.Result, error) { return p.store.LoadMeasurements(ctx, ct.Measurements()) }},
		{"value", func() (store.Result, error) { return p.store.LoadValues(ctx, ct.Values()) }},
		{"flag", func() (store.Result, error) { return p.store.LoadFlags(ctx, ct.Flags()) }},
		{"colocation", func() (store.Result, error) { return p.store.LoadColocations(ctx, ct.Colocations()) }},
		{"ref_measurement", func() (store.Result, error) { return p.store.LoadReferenceMeasurements(ctx, ct.ReferenceMeasurements()) }},
		{"ref_value", func() (store.Result, error) { return p.store.LoadReferenceValues(ctx, ct.ReferenceValues()) }},
		{"device_header", func() (store.Result, error) { return p.store.LoadDeviceHeaders(ctx, ct.DeviceHeaders()) }},
		{"ref_header", func() (store.Result, error) { return p.store.LoadReferenceHeaders(ctx, ct.ReferenceHeaders()) }},
	}

	for _, l := range loads {
		res, err := l.load()
		p.recordResult(summary, l.stream, res)
		if err != nil {
			return fmt.Errorf("%s stream: %w", l.stream, err)
		}
	}

	if err := p.store.MarkProcessed(ctx, file.Name, p.clock.Now()); err != nil {
		return err
	}

	p.metrics.FileLoadDuration.Observe(p.clock.Since(start).Seconds())
	p.logger.Info("file loaded", "file", file.Name)
	return nil
}

func (p *Pipeline) recordResult(summary *Summary, stream string, res store.Result) {
	total := summary.Streams[stream]
	total.Add(res)
	summary.Streams[stream] = total

	p.metrics.RecordsLoaded.WithLabelValues(stream, "inserted").Add(float64(res.Inserted))
	p.metrics.RecordsLoaded.WithLabelValues(stream, "skipped").Add(float64(res.Skipped))
}
