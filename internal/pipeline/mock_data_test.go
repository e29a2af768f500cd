package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/accident-data-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/accident-data-etl/internal/adapter/heatmap"
	"github.com/couchcryptid/accident-data-etl/internal/adapter/store"
	"github.com/couchcryptid/accident-data-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/accident-data-etl/internal/domain"
	"github.com/couchcryptid/accident-data-etl/internal/pipeline"
)

const samplePath = "testdata/accidents_sample.csv"

// TestPipeline_SampleFile runs the sample CSV through the real loader,
// preparer and file exporters.
func TestPipeline_SampleFile(t *testing.T) {
	out := t.TempDir()
	metrics := newTestMetrics()
	logger := discardLogger()

	db, err := store.Open(context.Background(), filepath.Join(out, "accidents.db"), 10, metrics, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	heatmapPath := filepath.Join(out, "accident_hotspot_heatmap.html")
	exporters := []pipeline.Exporter{
		heatmap.NewExporter(heatmap.Options{Path: heatmapPath, State: "CA", SampleSize: 5000, Seed: 42, Zoom: 6}, nil, logger),
		xlsx.NewExporter(filepath.Join(out, "report.xlsx"), logger),
		db,
	}

	p := pipeline.New(csvsource.NewLoader(samplePath, logger), pipeline.NewPreparer(samplePath, logger),
		exporters, logger, metrics)

	ds, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 24, ds.Stats.Rows)
	require.Len(t, ds.Records, 24)
	assert.Equal(t, 1, ds.Stats.StartTimeFailures, "US slash date is not the Start_Time layout")
	assert.Equal(t, 1, ds.Stats.EndTimeFailures)

	t.Run("missingness report", func(t *testing.T) {
		require.Len(t, ds.Missingness, domain.DefaultReportSize)
		assert.Equal(t, []domain.ColumnMissing{
			{Column: domain.ColWindSpeed, Missing: 8},
			{Column: domain.ColTemperature, Missing: 4},
			{Column: domain.ColVisibility, Missing: 3},
			{Column: domain.ColHumidity, Missing: 2},
			{Column: domain.ColEndTime, Missing: 1},
			{Column: domain.ColWeatherCondition, Missing: 1},
			{Column: domain.ColDay, Missing: 1},
		}, ds.Missingness[:7])
	})

	t.Run("weather fully imputed", func(t *testing.T) {
		for _, r := range ds.Records {
			for _, wf := range domain.WeatherFields {
				assert.True(t, wf.Field(&r).Valid, "%s row %d", wf.Column, r.Row)
			}
		}
		assert.Equal(t, 8, ds.Stats.Imputed[domain.ColWindSpeed])
		assert.Equal(t, 0, ds.Stats.Imputed[domain.ColPressure])
	})

	t.Run("temporal attributes", func(t *testing.T) {
		first := ds.Records[0]
		assert.Equal(t, 5, first.Hour.V)
		assert.Equal(t, 0, first.DayOfWeek.V, "2016-02-08 was a Monday")
		assert.Equal(t, 2, first.Month.V)
		assert.Equal(t, 2016, first.Year.V)

		fractional := ds.Records[1]
		assert.True(t, fractional.StartTime.Valid, "fractional seconds are truncated away")

		slash := ds.Records[7]
		assert.False(t, slash.StartTime.Valid)
		assert.False(t, slash.Hour.Valid)
	})

	t.Run("day names", func(t *testing.T) {
		assert.Equal(t, "Mon", ds.Records[0].DayName.V)
		assert.False(t, ds.Records[13].DayName.Valid, "missing Day gives missing DayName")
	})

	t.Run("artifacts", func(t *testing.T) {
		for _, f := range []string{heatmapPath, filepath.Join(out, "report.xlsx")} {
			info, err := os.Stat(f)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		}
		n, err := db.CountRecords(context.Background(), ds.RunID)
		require.NoError(t, err)
		assert.Equal(t, 24, n)
	})
}
