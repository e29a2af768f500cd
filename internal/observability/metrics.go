package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "accident_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a preparation run.
type Metrics struct {
	RowsLoaded        prometheus.Counter
	StartTimeFailures prometheus.Counter
	EndTimeFailures   prometheus.Counter
	WeatherImputed    *prometheus.CounterVec // labels: column
	PipelineRunning   prometheus.Gauge

	StageDuration     *prometheus.HistogramVec // labels: stage={load,prepare,export}
	ArtifactsExported *prometheus.CounterVec   // labels: exporter
	ExportErrors      *prometheus.CounterVec   // labels: exporter
	RecordsPublished  prometheus.Counter
	RecordsStored     prometheus.Counter

	// Reverse geocoding for the heatmap caption.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Total data rows read from the source CSV.",
		}),
		StartTimeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "start_time_parse_failures_total",
			Help:      "Start_Time values present but not parseable.",
		}),
		EndTimeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "end_time_parse_failures_total",
			Help:      "End_Time values present but not parseable.",
		}),
		WeatherImputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_values_imputed_total",
			Help:      "Weather cells filled with the column median.",
		}, []string{"column"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a preparation run is in progress.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"stage"}),
		ArtifactsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_exported_total",
			Help:      "Successful exports by exporter.",
		}, []string{"exporter"}),
		ExportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_errors_total",
			Help:      "Failed exports by exporter.",
		}, []string{"exporter"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Prepared records written to Kafka.",
		}),
		RecordsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_stored_total",
			Help:      "Prepared records inserted into the SQL store.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RowsLoaded,
		m.StartTimeFailures,
		m.EndTimeFailures,
		m.WeatherImputed,
		m.PipelineRunning,
		m.StageDuration,
		m.ArtifactsExported,
		m.ExportErrors,
		m.RecordsPublished,
		m.RecordsStored,
		m.GeocodeRequests,
		m.GeocodeCache,
	}
}
