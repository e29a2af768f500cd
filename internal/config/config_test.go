package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapboxToken = "pk.test-token"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.InputPath)
	assert.Equal(t, "accident_hotspot_heatmap.html", cfg.HeatmapOutput)
	assert.Equal(t, "CA", cfg.HeatmapState)
	assert.Equal(t, 5000, cfg.HeatmapSampleSize)
	assert.Equal(t, uint64(42), cfg.HeatmapSeed)
	assert.Equal(t, 6, cfg.HeatmapZoom)
	assert.Equal(t, "charts", cfg.ChartDir)
	assert.Empty(t, cfg.ReportXLSX)
	assert.Empty(t, cfg.StoreDSN)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "prepared-accidents", cfg.KafkaTopic)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("ACCIDENTS_CSV", "/data/US_Accidents.csv")
	t.Setenv("HEATMAP_OUTPUT", "out/map.html")
	t.Setenv("HEATMAP_STATE", "tx")
	t.Setenv("HEATMAP_SAMPLE_SIZE", "250")
	t.Setenv("HEATMAP_SEED", "7")
	t.Setenv("HEATMAP_ZOOM", "9")
	t.Setenv("CHART_DIR", "plots")
	t.Setenv("REPORT_XLSX", "report.xlsx")
	t.Setenv("STORE_DSN", "accidents.db")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/US_Accidents.csv", cfg.InputPath)
	assert.Equal(t, "out/map.html", cfg.HeatmapOutput)
	assert.Equal(t, "TX", cfg.HeatmapState)
	assert.Equal(t, 250, cfg.HeatmapSampleSize)
	assert.Equal(t, uint64(7), cfg.HeatmapSeed)
	assert.Equal(t, 9, cfg.HeatmapZoom)
	assert.Equal(t, "plots", cfg.ChartDir)
	assert.Equal(t, "report.xlsx", cfg.ReportXLSX)
	assert.Equal(t, "accidents.db", cfg.StoreDSN)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"shutdown timeout not a duration", "SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-1s"},
		{"zero batch size", "BATCH_SIZE", "0"},
		{"batch size too large", "BATCH_SIZE", "99999"},
		{"sample size not a number", "HEATMAP_SAMPLE_SIZE", "lots"},
		{"zoom out of range", "HEATMAP_ZOOM", "30"},
		{"negative seed", "HEATMAP_SEED", "-3"},
		{"bad mapbox timeout", "MAPBOX_TIMEOUT", "bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", "")
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestLoad_EmptyChartDirDisablesCharts(t *testing.T) {
	t.Setenv("CHART_DIR", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ChartDir)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ACCIDENTS_CSV=from-dotenv.csv\nLOG_LEVEL=warn\n"), 0o600))
	t.Chdir(dir)

	// Set values win over the file; t.Setenv also restores them afterwards.
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ACCIDENTS_CSV", "")
	require.NoError(t, os.Unsetenv("ACCIDENTS_CSV"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.csv", cfg.InputPath)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestParseBrokers(t *testing.T) {
	assert.Nil(t, ParseBrokers(""))
	assert.Equal(t, []string{"a:1"}, ParseBrokers(" a:1 ,, "))
	assert.Equal(t, []string{"a:1", "b:2"}, ParseBrokers("a:1,b:2"))
}
