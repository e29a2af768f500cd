package heatmap

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

func some[T any](v T) sql.Null[T] { return sql.Null[T]{V: v, Valid: true} }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
	calls  int
}

func (s *stubGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	s.calls++
	return s.result, s.err
}

func californiaDataset(n int) *domain.Dataset {
	var records []domain.AccidentRecord
	for i := range n {
		records = append(records, domain.AccidentRecord{
			State:    some("CA"),
			StartLat: some(34.0 + float64(i)*0.001),
			StartLng: some(-118.0 - float64(i)*0.001),
		})
	}
	records = append(records, domain.AccidentRecord{State: some("OR"), StartLat: some(45.5), StartLng: some(-122.6)})
	return &domain.Dataset{Records: records}
}

func options(t *testing.T) Options {
	return Options{
		Path:       filepath.Join(t.TempDir(), "out", "accident_hotspot_heatmap.html"),
		State:      "CA",
		SampleSize: 5,
		Seed:       42,
		Zoom:       6,
	}
}

func readPage(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestExport_WritesSampledPage(t *testing.T) {
	opts := options(t)
	geo := &stubGeocoder{result: domain.GeocodingResult{FormattedAddress: "Los Angeles, California"}}
	e := NewExporter(opts, geo, discardLogger())
	assert.Equal(t, "heatmap", e.Name())

	require.NoError(t, e.Export(context.Background(), californiaDataset(20)))

	html := readPage(t, opts.Path)
	assert.Contains(t, html, "L.heatLayer")
	assert.Contains(t, html, "Accident hotspots in CA")
	assert.Contains(t, html, "5 of 20 accidents")
	assert.Contains(t, html, "Los Angeles, California")
	assert.NotContains(t, html, "45.5", "other states are excluded")
	assert.Equal(t, 1, geo.calls)
}

func TestExport_SameSeedSamePage(t *testing.T) {
	opts := options(t)
	ds := californiaDataset(50)

	require.NoError(t, NewExporter(opts, nil, discardLogger()).Export(context.Background(), ds))
	first := readPage(t, opts.Path)
	require.NoError(t, NewExporter(opts, nil, discardLogger()).Export(context.Background(), ds))

	assert.Equal(t, first, readPage(t, opts.Path))
}

func TestExport_FewerRowsThanSample(t *testing.T) {
	opts := options(t)
	opts.SampleSize = 5000
	require.NoError(t, NewExporter(opts, nil, discardLogger()).Export(context.Background(), californiaDataset(3)))

	assert.Contains(t, readPage(t, opts.Path), "3 of 3 accidents")
}

func TestExport_EmptyStateStillWritesPage(t *testing.T) {
	opts := options(t)
	opts.State = "NY"
	geo := &stubGeocoder{}

	require.NoError(t, NewExporter(opts, geo, discardLogger()).Export(context.Background(), californiaDataset(5)))

	html := readPage(t, opts.Path)
	assert.Contains(t, html, "No accidents with coordinates found for NY.")
	assert.Contains(t, html, "0 of 0 accidents")
	assert.Zero(t, geo.calls, "empty sample is not geocoded")
}

func TestExport_GeocoderFailureOmitsCaption(t *testing.T) {
	opts := options(t)
	geo := &stubGeocoder{err: errors.New("mapbox down")}

	require.NoError(t, NewExporter(opts, geo, discardLogger()).Export(context.Background(), californiaDataset(5)))

	html := readPage(t, opts.Path)
	assert.NotContains(t, html, "mapbox down")
	assert.NotContains(t, html, "<br>")
}

func TestExport_UnwritablePath(t *testing.T) {
	opts := options(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	opts.Path = filepath.Join(blocker, "map.html")

	err := NewExporter(opts, nil, discardLogger()).Export(context.Background(), californiaDataset(2))
	require.Error(t, err)
}
