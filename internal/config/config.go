package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	// InputPath is the accident CSV. It has no default; the CLI may supply it.
	InputPath string

	HeatmapOutput     string
	HeatmapState      string
	HeatmapSampleSize int
	HeatmapSeed       uint64
	HeatmapZoom       int

	ChartDir   string // empty disables PNG charts
	ReportXLSX string // empty disables the workbook
	StoreDSN   string // empty disables the SQL export

	KafkaBrokers []string // empty disables publishing
	KafkaTopic   string
	BatchSize    int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Mapbox reverse geocoding for the heatmap caption.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parsePositiveInt("BATCH_SIZE", 500, 10000)
	if err != nil {
		return nil, err
	}

	sampleSize, err := parsePositiveInt("HEATMAP_SAMPLE_SIZE", 5000, 1_000_000)
	if err != nil {
		return nil, err
	}

	zoom, err := parsePositiveInt("HEATMAP_ZOOM", 6, 18)
	if err != nil {
		return nil, err
	}

	seed, err := strconv.ParseUint(EnvOrDefault("HEATMAP_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid HEATMAP_SEED")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		InputPath: os.Getenv("ACCIDENTS_CSV"),

		HeatmapOutput:     EnvOrDefault("HEATMAP_OUTPUT", "accident_hotspot_heatmap.html"),
		HeatmapState:      strings.ToUpper(EnvOrDefault("HEATMAP_STATE", "CA")),
		HeatmapSampleSize: sampleSize,
		HeatmapSeed:       seed,
		HeatmapZoom:       zoom,

		ChartDir:   lookupOrDefault("CHART_DIR", "charts"),
		ReportXLSX: os.Getenv("REPORT_XLSX"),
		StoreDSN:   os.Getenv("STORE_DSN"),

		KafkaBrokers: ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvOrDefault("KAFKA_TOPIC", "prepared-accidents"),
		BatchSize:    batchSize,

		HTTPAddr:        EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       EnvOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.HeatmapOutput == "" {
		return nil, errors.New("HEATMAP_OUTPUT must not be empty")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// EnvOrDefault returns the environment variable's value or def when unset or empty.
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBrokers splits a comma-separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// lookupOrDefault is EnvOrDefault for settings where an explicitly empty
// value means "off".
func lookupOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > maxVal {
		return 0, fmt.Errorf("invalid %s: must be between 1 and %d", key, maxVal)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
