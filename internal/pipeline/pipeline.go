package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
	"github.com/couchcryptid/accident-data-etl/internal/observability"
)

// Source loads the raw accident table.
type Source interface {
	Load(ctx context.Context) (*domain.RawTable, error)
}

// Preparer turns a raw table into a prepared dataset.
type Preparer interface {
	Prepare(ctx context.Context, t *domain.RawTable) (*domain.Dataset, error)
}

// Exporter writes a prepared dataset somewhere: a file, a database, a topic.
type Exporter interface {
	Name() string
	Export(ctx context.Context, ds *domain.Dataset) error
}

// Pipeline runs load, prepare and every exporter once, in that order.
type Pipeline struct {
	source    Source
	preparer  Preparer
	exporters []Exporter
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	last      atomic.Pointer[domain.Dataset]
}

// New creates a Pipeline. Exporters run in the order given.
func New(src Source, prep Preparer, exporters []Exporter, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:    src,
		preparer:  prep,
		exporters: exporters,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no preparation run has completed yet")
	}
	return nil
}

// LastDataset returns the dataset of the last successful run.
func (p *Pipeline) LastDataset() (*domain.Dataset, bool) {
	ds := p.last.Load()
	return ds, ds != nil
}

// Run executes one full preparation. Any failure stops the run; the error
// names the stage ("load", "prepare" or "export <name>") it came from.
func (p *Pipeline) Run(ctx context.Context) (*domain.Dataset, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	start := time.Now()

	table, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	ds, err := p.prepare(ctx, table)
	if err != nil {
		return nil, err
	}

	if err := p.export(ctx, ds); err != nil {
		return nil, err
	}

	p.last.Store(ds)
	p.ready.Store(true)
	p.logger.Info("run complete",
		"run_id", ds.RunID,
		"rows", ds.Stats.Rows,
		"exporters", len(p.exporters),
		"duration", time.Since(start),
	)
	return ds, nil
}

// Report loads the source and returns its top-n missingness report without
// preparing or exporting anything.
func (p *Pipeline) Report(ctx context.Context, n int) ([]domain.ColumnMissing, error) {
	table, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return domain.MissingnessReport(table, n), nil
}

func (p *Pipeline) load(ctx context.Context) (*domain.RawTable, error) {
	defer p.observeStage("load", time.Now())

	table, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	p.metrics.RowsLoaded.Add(float64(table.Len()))
	return table, nil
}

func (p *Pipeline) prepare(ctx context.Context, table *domain.RawTable) (*domain.Dataset, error) {
	defer p.observeStage("prepare", time.Now())

	ds, err := p.preparer.Prepare(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}

	p.metrics.StartTimeFailures.Add(float64(ds.Stats.StartTimeFailures))
	p.metrics.EndTimeFailures.Add(float64(ds.Stats.EndTimeFailures))
	for col, n := range ds.Stats.Imputed {
		p.metrics.WeatherImputed.WithLabelValues(col).Add(float64(n))
	}
	return ds, nil
}

func (p *Pipeline) export(ctx context.Context, ds *domain.Dataset) error {
	defer p.observeStage("export", time.Now())

	for _, e := range p.exporters {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export %s: %w", e.Name(), err)
		}
		if err := e.Export(ctx, ds); err != nil {
			p.metrics.ExportErrors.WithLabelValues(e.Name()).Inc()
			return fmt.Errorf("export %s: %w", e.Name(), err)
		}
		p.metrics.ArtifactsExported.WithLabelValues(e.Name()).Inc()
	}
	return nil
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
