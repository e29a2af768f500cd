package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

// DatasetPreparer implements Preparer with the domain preparation steps and
// logs what was absorbed as missing or imputed.
type DatasetPreparer struct {
	source string
	logger *slog.Logger
}

// NewPreparer creates a DatasetPreparer. source is recorded on every dataset.
func NewPreparer(source string, logger *slog.Logger) *DatasetPreparer {
	return &DatasetPreparer{source: source, logger: logger}
}

func (p *DatasetPreparer) Prepare(ctx context.Context, t *domain.RawTable) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := domain.Prepare(t)
	if err != nil {
		return nil, err
	}
	ds.Source = p.source

	for _, m := range ds.Missingness {
		p.logger.Debug("missing values", "column", m.Column, "missing", m.Missing)
	}
	if ds.Stats.StartTimeFailures > 0 || ds.Stats.EndTimeFailures > 0 {
		p.logger.Warn("unparseable timestamps treated as missing",
			"start_time", ds.Stats.StartTimeFailures,
			"end_time", ds.Stats.EndTimeFailures,
		)
	}
	for _, wf := range domain.WeatherFields {
		if n := ds.Stats.Imputed[wf.Column]; n > 0 {
			p.logger.Info("weather values imputed", "column", wf.Column, "count", n, "median", ds.Medians[wf.Column])
		}
	}

	p.logger.Info("dataset prepared", "run_id", ds.RunID, "rows", ds.Stats.Rows)
	return ds, nil
}
