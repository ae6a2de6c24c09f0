package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	SubmissionsConsumed prometheus.Counter
	ResultsProduced     prometheus.Counter
	TransformErrors     prometheus.Counter
	PipelineRunning     prometheus.Gauge

	// Validation metrics.
	SubmissionsInvalid prometheus.Counter
	ValidationErrors   prometheus.Counter

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Hub configuration service metrics.
	HubRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	HubCache    *prometheus.CounterVec // labels: result={hit,miss}
	HubEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SubmissionsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forecast_etl",
			Name:      "submissions_consumed_total",
			Help:      "Total submissions read from the source topic.",
		}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forecast_etl",
			Name:      "results_produced_total",
			Help:      "Total validation results written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forecast_etl",
			Name:      "transform_errors_total",
			Help:      "Total submissions that could not be processed at all.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forecast_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		SubmissionsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forecast_etl",
			Name:      "submissions_invalid_total",
			Help:      "Total submissions that failed forecast validation.",
		}),
		ValidationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forecast_etl",
			Name:      "validation_errors_total",
			Help:      "Total validation error messages across all submissions.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forecast_etl",
			Name:      "batch_size",
			Help:      "Number of submissions per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forecast_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		HubRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forecast_etl",
			Name:      "hub_requests_total",
			Help:      "Hub configuration API requests by outcome.",
		}, []string{"outcome"}),
		HubCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forecast_etl",
			Name:      "hub_cache_total",
			Help:      "Hub configuration cache lookups by result.",
		}, []string{"result"}),
		HubEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forecast_etl",
			Name:      "hub_enabled",
			Help:      "1 when the hub configuration service is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.SubmissionsConsumed,
		m.ResultsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.SubmissionsInvalid,
		m.ValidationErrors,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.HubRequests,
		m.HubCache,
		m.HubEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SubmissionsConsumed:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "forecast_etl", Name: "submissions_consumed_total"}),
		ResultsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "forecast_etl", Name: "results_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "forecast_etl", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "forecast_etl", Name: "pipeline_running"}),
		SubmissionsInvalid:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "forecast_etl", Name: "submissions_invalid_total"}),
		ValidationErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "forecast_etl", Name: "validation_errors_total"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "forecast_etl", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "forecast_etl", Name: "batch_processing_duration_seconds"}),
		HubRequests:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "forecast_etl", Name: "hub_requests_total"}, []string{"outcome"}),
		HubCache:                prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "forecast_etl", Name: "hub_cache_total"}, []string{"result"}),
		HubEnabled:              prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "forecast_etl", Name: "hub_enabled"}),
	}
}
