// Package metrics provides Prometheus metrics for the staffing risk engine.
// Gauges describe the most recent analysis; counters and histograms
// accumulate over the life of the process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// RISK METRICS - Latest analysis
// =============================================================================

// IntervalsByStatus counts intervals of the latest analysis per workload status.
var IntervalsByStatus = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "staffrisk",
	Name:      "intervals_by_status",
	Help:      "Number of intervals in the latest analysis by workload status",
}, []string{"status"})

// RiskPeriods counts contiguous risk periods of the latest analysis.
var RiskPeriods = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "staffrisk",
	Name:      "risk_periods",
	Help:      "Number of contiguous overload or idle periods in the latest analysis",
}, []string{"status"})

// BurnoutRisk is the horizon burnout score of the latest analysis.
var BurnoutRisk = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "staffrisk",
	Name:      "burnout_risk",
	Help:      "Horizon burnout risk score (0-100) of the latest analysis",
})

// UnservedOrders sums positive demand gaps of the latest analysis.
var UnservedOrders = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "staffrisk",
	Name:      "unserved_orders",
	Help:      "Forecast orders exceeding capacity across the latest analysis",
})

// RecommendationsTotal counts emitted recommendations by kind.
var RecommendationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffrisk",
	Name:      "recommendations_total",
	Help:      "Recommendations emitted by kind",
}, []string{"kind"})

// =============================================================================
// MODEL METRICS
// =============================================================================

// ModelReady is 1 once a demand model has been published.
var ModelReady = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "model_ready",
	Help:      "Whether a trained demand model is available (1) or not (0)",
})

// ModelTrainingSamples is the bucket count the current model was trained on.
var ModelTrainingSamples = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "training_samples",
	Help:      "Number of historical buckets used to train the current model",
})

// TrainingsTotal counts trainings by resulting model kind.
var TrainingsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "forecast",
	Name:      "trainings_total",
	Help:      "Completed trainings by model kind",
}, []string{"kind"})

// TrainingDurationSeconds tracks time to fit a demand model.
var TrainingDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "forecast",
	Name:      "training_duration_seconds",
	Help:      "Time taken to train the demand model",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
})

// ForecastDurationSeconds tracks time to produce a recursive forecast.
var ForecastDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "forecast",
	Name:      "duration_seconds",
	Help:      "Time taken to produce a demand forecast",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
})

// ForecastNotReadyTotal counts forecasts rejected before a model was ready.
var ForecastNotReadyTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "forecast",
	Name:      "not_ready_total",
	Help:      "Forecast requests rejected because no model was published",
})

// =============================================================================
// INPUT METRICS - Operational Health
// =============================================================================

// ParserErrorsTotal tracks parse errors by error type.
var ParserErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "errors_total",
	Help:      "Total parse errors by error type",
}, []string{"error_type"})

// ParserRecordsTotal tracks records successfully parsed by input kind.
var ParserRecordsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "records_total",
	Help:      "Total CSV records successfully parsed",
}, []string{"input"})

// ParserDurationSeconds tracks time to parse input files.
var ParserDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "parser",
	Name:      "duration_seconds",
	Help:      "Time taken to parse CSV input file",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
})

// ValidationErrorsTotal counts rejected engine inputs by field.
var ValidationErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffrisk",
	Name:      "validation_errors_total",
	Help:      "Inputs rejected at the engine boundary by field",
}, []string{"field"})

// =============================================================================
// Helper Functions
// =============================================================================

// ResetAnalysisGauges clears the latest-analysis gauges. Call this at the
// start of every workload analysis.
func ResetAnalysisGauges() {
	IntervalsByStatus.Reset()
	RiskPeriods.Reset()
	BurnoutRisk.Set(0)
	UnservedOrders.Set(0)
}
