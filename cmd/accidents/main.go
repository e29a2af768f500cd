// Command accidents prepares a US traffic-accident CSV for analysis and
// writes the configured artifacts (heatmap, charts, workbook, SQL, Kafka).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/couchcryptid/accident-data-etl/internal/adapter/chart"
	"github.com/couchcryptid/accident-data-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/accident-data-etl/internal/adapter/heatmap"
	httpadapter "github.com/couchcryptid/accident-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/accident-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/accident-data-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/accident-data-etl/internal/adapter/store"
	"github.com/couchcryptid/accident-data-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/accident-data-etl/internal/config"
	"github.com/couchcryptid/accident-data-etl/internal/domain"
	"github.com/couchcryptid/accident-data-etl/internal/observability"
	"github.com/couchcryptid/accident-data-etl/internal/pipeline"
)

type cli struct {
	Prepare prepareCmd `cmd:"" default:"withargs" help:"Prepare the dataset and write every configured artifact."`
	Report  reportCmd  `cmd:"" help:"Print the top missingness columns without preparing."`
	Serve   serveCmd   `cmd:"" help:"Prepare once, then serve health, metrics and artifacts."`
}

type prepareCmd struct {
	Input string `arg:"" optional:"" help:"Accident CSV. Overrides ACCIDENTS_CSV."`
}

type reportCmd struct {
	Input string `arg:"" optional:"" help:"Accident CSV. Overrides ACCIDENTS_CSV."`
}

type serveCmd struct {
	Input string `arg:"" optional:"" help:"Accident CSV. Overrides ACCIDENTS_CSV."`
}

// app carries the process-wide dependencies bound into every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	out     io.Writer
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("accidents"),
		kong.Description("Tabular data preparation for the US traffic-accident dataset."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	a := &app{
		cfg:     cfg,
		logger:  observability.NewLogger(cfg),
		metrics: observability.NewMetrics(),
		out:     os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(a); err != nil {
		stop()
		// Domain errors already name the stage, column and CSV line.
		fmt.Fprintf(os.Stderr, "accidents: %v\n", err)
		os.Exit(1)
	}
}

func (cmd *prepareCmd) Run(ctx context.Context, a *app) error {
	p, cleanup, err := a.build(ctx, cmd.Input)
	if err != nil {
		return err
	}
	defer cleanup()

	ds, err := p.Run(ctx)
	if err != nil {
		return err
	}
	a.printSummary(ds)
	return nil
}

func (cmd *reportCmd) Run(ctx context.Context, a *app) error {
	input, err := a.input(cmd.Input)
	if err != nil {
		return err
	}
	p := pipeline.New(csvsource.NewLoader(input, a.logger), nil, nil, a.logger, a.metrics)
	report, err := p.Report(ctx, domain.DefaultReportSize)
	if err != nil {
		return err
	}
	printMissingness(a.out, report, 0)
	return nil
}

func (cmd *serveCmd) Run(ctx context.Context, a *app) error {
	p, cleanup, err := a.build(ctx, cmd.Input)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, p, p, a.cfg.ChartDir, a.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
		}
	}()

	// A failed run keeps serving with /readyz reporting not ready.
	if ds, err := p.Run(ctx); err != nil {
		a.logger.Error("preparation failed", "error", err)
	} else {
		a.printSummary(ds)
	}

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *app) input(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if a.cfg.InputPath != "" {
		return a.cfg.InputPath, nil
	}
	return "", errors.New("no input: pass a CSV path or set ACCIDENTS_CSV")
}

// build wires the pipeline and its exporters from config. The returned
// cleanup closes whatever the exporters opened.
func (a *app) build(ctx context.Context, arg string) (*pipeline.Pipeline, func(), error) {
	input, err := a.input(arg)
	if err != nil {
		return nil, nil, err
	}

	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				a.logger.Error("close error", "error", err)
			}
		}
	}

	var geocoder domain.Geocoder
	if a.cfg.MapboxEnabled {
		client := mapbox.NewClient(a.cfg.MapboxToken, a.cfg.MapboxTimeout, a.metrics, a.logger)
		geocoder = mapbox.NewCachedGeocoder(client, a.cfg.MapboxCacheSize, a.metrics)
		a.logger.Info("mapbox geocoding enabled", "cache_size", a.cfg.MapboxCacheSize, "timeout", a.cfg.MapboxTimeout)
	}

	exporters := []pipeline.Exporter{
		heatmap.NewExporter(heatmap.Options{
			Path:       a.cfg.HeatmapOutput,
			State:      a.cfg.HeatmapState,
			SampleSize: a.cfg.HeatmapSampleSize,
			Seed:       a.cfg.HeatmapSeed,
			Zoom:       a.cfg.HeatmapZoom,
		}, geocoder, a.logger),
	}
	if a.cfg.ChartDir != "" {
		exporters = append(exporters, chart.NewExporter(a.cfg.ChartDir, a.logger))
	}
	if a.cfg.ReportXLSX != "" {
		exporters = append(exporters, xlsx.NewExporter(a.cfg.ReportXLSX, a.logger))
	}
	if a.cfg.StoreDSN != "" {
		st, err := store.Open(ctx, a.cfg.StoreDSN, a.cfg.BatchSize, a.metrics, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		closers = append(closers, st)
		exporters = append(exporters, st)
	}
	if len(a.cfg.KafkaBrokers) > 0 {
		pub := kafkaadapter.NewPublisher(a.cfg, a.metrics, a.logger)
		closers = append(closers, pub)
		exporters = append(exporters, pub)
	}

	names := make([]string, len(exporters))
	for i, e := range exporters {
		names[i] = e.Name()
	}
	a.logger.Info("pipeline configured", "input", input, "exporters", names)

	p := pipeline.New(
		csvsource.NewLoader(input, a.logger),
		pipeline.NewPreparer(input, a.logger),
		exporters,
		a.logger,
		a.metrics,
	)
	return p, cleanup, nil
}

func (a *app) printSummary(ds *domain.Dataset) {
	fmt.Fprintf(a.out, "Prepared %d rows (run %s)\n\n", ds.Stats.Rows, ds.RunID)
	printMissingness(a.out, ds.Missingness, ds.Stats.Rows)
	fmt.Fprintln(a.out)

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Weather column\tMedian\tImputed")
	for _, wf := range domain.WeatherFields {
		fmt.Fprintf(w, "%s\t%.2f\t%d\n", wf.Column, ds.Medians[wf.Column], ds.Stats.Imputed[wf.Column])
	}
	_ = w.Flush()

	if ds.Stats.StartTimeFailures > 0 || ds.Stats.EndTimeFailures > 0 {
		fmt.Fprintf(a.out, "\nUnparseable timestamps: Start_Time %d, End_Time %d\n",
			ds.Stats.StartTimeFailures, ds.Stats.EndTimeFailures)
	}
}

// printMissingness writes the report as a table. rows > 0 adds a percentage.
func printMissingness(out io.Writer, report []domain.ColumnMissing, rows int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if rows > 0 {
		fmt.Fprintln(w, "Column\tMissing\tMissing %")
	} else {
		fmt.Fprintln(w, "Column\tMissing")
	}
	for _, m := range report {
		if rows > 0 {
			fmt.Fprintf(w, "%s\t%d\t%.2f\n", m.Column, m.Missing, 100*float64(m.Missing)/float64(rows))
		} else {
			fmt.Fprintf(w, "%s\t%d\n", m.Column, m.Missing)
		}
	}
	_ = w.Flush()
}
