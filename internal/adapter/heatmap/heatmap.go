// Package heatmap writes the accident hotspot map as a standalone Leaflet page.
package heatmap

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
	"github.com/couchcryptid/accident-data-etl/internal/eda"
)

//go:embed heatmap.html.tmpl
var pageSource string

var page = template.Must(template.New("heatmap").Parse(pageSource))

// Options configure the sample and the map view.
type Options struct {
	Path       string
	State      string
	SampleSize int
	Seed       uint64
	Zoom       int
}

// Exporter writes the heatmap page. The geocoder is optional; when set, the
// map centre is described in the caption.
type Exporter struct {
	opts     Options
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewExporter creates a heatmap exporter. geocoder may be nil.
func NewExporter(opts Options, geocoder domain.Geocoder, logger *slog.Logger) *Exporter {
	return &Exporter{opts: opts, geocoder: geocoder, logger: logger}
}

// Name identifies the exporter in logs, metrics and errors.
func (e *Exporter) Name() string { return "heatmap" }

type pageData struct {
	Title     string
	Center    eda.LatLng
	Zoom      int
	Points    [][2]float64
	Sampled   int
	Available int
	Location  string
	Warning   string
}

// Export samples the configured state and writes the page. A state with no
// located accidents still produces a page, centred on the US, with a warning.
func (e *Exporter) Export(ctx context.Context, ds *domain.Dataset) error {
	h := eda.HotspotSample(ds.Records, e.opts.State, e.opts.SampleSize, e.opts.Seed)

	data := pageData{
		Title:     fmt.Sprintf("Accident hotspots in %s", e.opts.State),
		Center:    h.Center,
		Zoom:      e.opts.Zoom,
		Points:    make([][2]float64, len(h.Points)),
		Sampled:   len(h.Points),
		Available: h.Available,
	}
	for i, p := range h.Points {
		data.Points[i] = [2]float64{p.Lat, p.Lng}
	}

	if len(h.Points) == 0 {
		data.Warning = fmt.Sprintf("No accidents with coordinates found for %s.", e.opts.State)
		e.logger.Warn("heatmap sample is empty", "state", e.opts.State)
	} else {
		data.Location = domain.DescribeLocation(ctx, h.Center.Lat, h.Center.Lng, e.geocoder, e.logger)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	if dir := filepath.Dir(e.opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(e.opts.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", e.opts.Path, err)
	}

	e.logger.Info("heatmap written",
		"path", e.opts.Path,
		"state", e.opts.State,
		"sampled", len(h.Points),
		"available", h.Available,
	)
	return nil
}
