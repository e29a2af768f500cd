// Package chart renders the exploratory PNG charts with gonum/plot.
package chart

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
	"github.com/couchcryptid/accident-data-etl/internal/eda"
)

const (
	width  = 10 * vg.Inch
	height = 6 * vg.Inch
)

var barWidth = vg.Points(14)

var barColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}

// Exporter writes one PNG per chart into a directory.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// NewExporter creates a chart exporter writing into dir.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// Name identifies the exporter in logs, metrics and errors.
func (e *Exporter) Name() string { return "chart" }

// Dir returns the output directory.
func (e *Exporter) Dir() string { return e.dir }

type chartFunc func(records []domain.AccidentRecord) (*plot.Plot, error)

type namedChart struct {
	file   string
	render chartFunc
}

func charts() []namedChart {
	out := []namedChart{
		{"hour_of_day.png", hourOfDay},
		{"top_weather_conditions.png", topWeatherConditions},
		{"temperature_vs_visibility.png", scatter("Temperature vs Visibility", "Temperature (F)", "Visibility (mi)", eda.Temperature, eda.Visibility)},
		{"severity_vs_visibility.png", scatter("Severity vs Visibility", "Severity", "Visibility (mi)", eda.Severity, eda.Visibility)},
	}
	for _, f := range domain.TrafficFeatures {
		out = append(out, namedChart{
			file:   "severity_by_" + strings.ToLower(f.Column) + ".png",
			render: severityByFeature(f),
		})
	}
	return append(out, namedChart{"day_of_week.png", dayOfWeek})
}

// Files lists the chart file names Export writes, in order.
func Files() []string {
	cs := charts()
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.file
	}
	return names
}

// Export renders every chart. The first failure aborts the export.
func (e *Exporter) Export(ctx context.Context, ds *domain.Dataset) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}

	for _, c := range charts() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := c.render(ds.Records)
		if err != nil {
			return fmt.Errorf("render %s: %w", c.file, err)
		}
		path := filepath.Join(e.dir, c.file)
		if err := p.Save(width, height, path); err != nil {
			return fmt.Errorf("save %s: %w", c.file, err)
		}
		e.logger.Debug("chart written", "path", path)
	}

	e.logger.Info("charts written", "dir", e.dir, "count", len(charts()))
	return nil
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	return p
}

// barPlot adds one bar per value. Empty values leave the plot blank since
// plotter rejects a bar chart with no data.
func barPlot(p *plot.Plot, values plotter.Values, labels []string) error {
	if len(values) == 0 {
		return nil
	}
	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return err
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.Y.Min = 0
	return nil
}

func hourOfDay(records []domain.AccidentRecord) (*plot.Plot, error) {
	p := newPlot("Accidents by Hour of Day", "Hour", "Accidents")
	counts := eda.HourCounts(records)
	values := make(plotter.Values, len(counts))
	labels := make([]string, len(counts))
	for h, c := range counts {
		values[h] = float64(c)
		labels[h] = strconv.Itoa(h)
	}
	return p, barPlot(p, values, labels)
}

func topWeatherConditions(records []domain.AccidentRecord) (*plot.Plot, error) {
	p := newPlot("Top Weather Conditions", "Weather condition", "Accidents")
	top := eda.TopCategories(records, eda.WeatherConditions, eda.DefaultTopCategories)
	values := make(plotter.Values, len(top))
	labels := make([]string, len(top))
	for i, c := range top {
		values[i] = float64(c.Count)
		labels[i] = c.Value
	}
	if err := barPlot(p, values, labels); err != nil {
		return nil, err
	}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return p, nil
}

func scatter(title, xLabel, yLabel string, x, y eda.Float) chartFunc {
	return func(records []domain.AccidentRecord) (*plot.Plot, error) {
		p := newPlot(title, xLabel, yLabel)
		points := eda.ScatterPoints(records, x, y)
		if len(points) == 0 {
			return p, nil
		}
		xys := make(plotter.XYs, len(points))
		for i, pt := range points {
			xys[i].X, xys[i].Y = pt.X, pt.Y
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = color.RGBA{R: 139, G: 0, B: 0, A: 90}
		s.GlyphStyle.Radius = vg.Points(1.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(plotter.NewGrid(), s)
		return p, nil
	}
}

func severityByFeature(feature domain.FeatureField) chartFunc {
	return func(records []domain.AccidentRecord) (*plot.Plot, error) {
		p := newPlot("Severity by "+feature.Column, "Severity", "Accidents")
		groups := eda.SeverityByFeature(records, feature)
		if len(groups) == 0 {
			return p, nil
		}

		without := make(plotter.Values, len(groups))
		with := make(plotter.Values, len(groups))
		labels := make([]string, len(groups))
		for i, g := range groups {
			without[i] = float64(g.Without)
			with[i] = float64(g.With)
			labels[i] = strconv.Itoa(g.Severity)
		}

		for i, series := range []struct {
			name   string
			values plotter.Values
		}{{"False", without}, {"True", with}} {
			bars, err := plotter.NewBarChart(series.values, barWidth)
			if err != nil {
				return nil, err
			}
			bars.Color = plotutil.Color(i)
			bars.LineStyle.Width = vg.Length(0)
			bars.Offset = barWidth * vg.Length(2*i-1) / 2
			p.Add(bars)
			p.Legend.Add(series.name, bars)
		}
		p.Legend.Top = true
		p.NominalX(labels...)
		p.Y.Min = 0
		return p, nil
	}
}

func dayOfWeek(records []domain.AccidentRecord) (*plot.Plot, error) {
	p := newPlot("Accidents by Day of Week", "Day", "Accidents")
	counts := eda.DayNameCounts(records)
	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}
	return p, barPlot(p, values, domain.DayNames[:])
}
