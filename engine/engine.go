// Package engine exposes the staffing risk pipeline as a set of entry points
// sharing one published demand model.
//
// Training builds a new model and swaps it in atomically, so any number of
// goroutines may forecast while a retrain is running. Every other entry
// point is stateless.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	customerrors "staffing-risk/errors"
	"staffing-risk/forecast"
	"staffing-risk/metrics"
	"staffing-risk/models"
	"staffing-risk/recommend"
	"staffing-risk/scenario"
	"staffing-risk/scheduler"
	"staffing-risk/store"
	"staffing-risk/workload"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine runs forecasting, capacity compilation, risk analysis,
// recommendation and scenario simulation.
type Engine struct {
	model atomic.Pointer[forecast.Model]

	capacity scheduler.Config
	params   forecast.Params
	rules    recommend.Config
	history  store.HistoryStore
	logger   zerolog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCapacity sets the capacity grid. The recommendation rules use the
// same grid.
func WithCapacity(cfg scheduler.Config) Option {
	return func(e *Engine) { e.capacity = cfg }
}

// WithForecastParams sets the training and inference parameters.
func WithForecastParams(p forecast.Params) Option {
	return func(e *Engine) { e.params = p }
}

// WithRules sets the recommendation thresholds. Its capacity grid is
// replaced by the engine's.
func WithRules(cfg recommend.Config) Option {
	return func(e *Engine) { e.rules = cfg }
}

// WithModel publishes an already trained model.
func WithModel(m *forecast.Model) Option {
	return func(e *Engine) { e.model.Store(m) }
}

// WithStore records analysis runs in s.
func WithStore(s store.HistoryStore) Option {
	return func(e *Engine) { e.history = s }
}

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an engine with no published model.
func New(opts ...Option) *Engine {
	e := &Engine{
		capacity: scheduler.DefaultConfig(),
		params:   forecast.DefaultParams(),
		rules:    recommend.DefaultConfig(),
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rules.Capacity = e.capacity
	if e.model.Load() != nil {
		metrics.ModelReady.Set(1)
	}
	return e
}

// Ready reports whether a demand model has been published.
func (e *Engine) Ready() bool {
	return e.model.Load() != nil
}

// Model returns the published model, or nil.
func (e *Engine) Model() *forecast.Model {
	return e.model.Load()
}

// TrainDemandModel fits a model on the valid buckets and publishes it. It
// never fails: thin or empty history produces a fallback model.
func (e *Engine) TrainDemandModel(buckets []models.Bucket) error {
	started := time.Now()

	valid := make([]models.Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Start.IsZero() || math.IsNaN(b.Orders) || math.IsInf(b.Orders, 0) || b.Orders < 0 {
			continue
		}
		valid = append(valid, b)
	}
	if skipped := len(buckets) - len(valid); skipped > 0 {
		e.logger.Warn().Int("skipped", skipped).Msg("Ignoring invalid training buckets")
	}

	e.logger.Info().Int("samples", len(valid)).Msg("Training demand model")
	m := forecast.Train(valid, e.params)
	e.model.Store(m)

	elapsed := time.Since(started)
	metrics.TrainingDurationSeconds.Observe(elapsed.Seconds())
	metrics.TrainingsTotal.WithLabelValues(string(m.Kind())).Inc()
	metrics.ModelTrainingSamples.Set(float64(m.Samples()))
	metrics.ModelReady.Set(1)

	e.logger.Info().
		Str("kind", string(m.Kind())).
		Int("samples", m.Samples()).
		Dur("elapsed", elapsed).
		Msg("Demand model published")
	return nil
}

// ForecastDemand predicts horizon intervals from start, feeding each
// prediction back as the next step's lag. start is floored to the grid.
// Before training it returns *errors.NotReadyError.
func (e *Engine) ForecastDemand(start time.Time, horizon int, seed models.LagContext) ([]models.DemandForecastPoint, error) {
	m := e.model.Load()
	if m == nil {
		metrics.ForecastNotReadyTotal.Inc()
		return nil, &customerrors.NotReadyError{Operation: "forecast demand"}
	}
	if horizon <= 0 {
		return []models.DemandForecastPoint{}, nil
	}

	started := time.Now()
	points := m.Forecast(start.Truncate(e.capacity.Interval), horizon, seed)
	metrics.ForecastDurationSeconds.Observe(time.Since(started).Seconds())

	e.logger.Debug().
		Time("start", points[0].Timestamp).
		Int("horizon", horizon).
		Str("model", string(m.Kind())).
		Msg("Forecast produced")
	return points, nil
}

// CompileCapacity validates shifts and maps them onto the grid starting at
// horizonStart, floored to the interval.
func (e *Engine) CompileCapacity(shifts []models.Shift, horizonStart time.Time) ([]models.CapacityInterval, error) {
	for i, s := range shifts {
		var err error
		switch {
		case s.StaffCount < 0:
			err = fmt.Errorf("%w: %d", customerrors.ErrNegativeStaff, s.StaffCount)
		case !s.Role.Valid():
			err = fmt.Errorf("%w: %q", customerrors.ErrUnknownRole, s.Role)
		case s.End.Before(s.Start):
			err = customerrors.ErrShiftBounds
		}
		if err != nil {
			return nil, e.invalid("shifts", i, err)
		}
	}
	return scheduler.Compile(shifts, horizonStart.Truncate(e.capacity.Interval), e.capacity), nil
}

// AnalyzeWorkload classifies every interval and returns the overload and
// idle periods in time order. points and capacity must pair one-to-one.
func (e *Engine) AnalyzeWorkload(points []models.DemandForecastPoint, capacity []models.CapacityInterval) ([]models.WorkloadInterval, []models.RiskPeriod, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			return nil, nil, e.invalid("forecast", i, customerrors.ErrNonMonotonic)
		}
	}
	if err := workload.Validate(points, capacity); err != nil {
		var verr *customerrors.ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationErrorsTotal.WithLabelValues(verr.Field).Inc()
		}
		return nil, nil, err
	}

	w := workload.Analyze(points, capacity)
	overload := workload.Periods(w, models.StatusOverload)
	idle := workload.Periods(w, models.StatusIdle)
	periods := append(append([]models.RiskPeriod{}, overload...), idle...)
	sort.Slice(periods, func(i, j int) bool { return periods[i].Start.Before(periods[j].Start) })

	e.observe(w, overload, idle)
	e.logger.Info().
		Int("intervals", len(w)).
		Int("overload_periods", len(overload)).
		Int("idle_periods", len(idle)).
		Msg("Workload analyzed")
	return w, periods, nil
}

func (e *Engine) observe(w []models.WorkloadInterval, overload, idle []models.RiskPeriod) {
	metrics.ResetAnalysisGauges()
	unserved := 0.0
	for _, interval := range w {
		metrics.IntervalsByStatus.WithLabelValues(string(interval.Status)).Inc()
		unserved += math.Max(0, interval.Gap)
	}
	metrics.UnservedOrders.Set(unserved)
	metrics.RiskPeriods.WithLabelValues(string(models.StatusOverload)).Set(float64(len(overload)))
	metrics.RiskPeriods.WithLabelValues(string(models.StatusIdle)).Set(float64(len(idle)))
	metrics.BurnoutRisk.Set(workload.Summarize(w).BurnoutRisk)
}

// Recommend evaluates the recommendation rules against an analyzed
// workload and the live kitchen state.
func (e *Engine) Recommend(w []models.WorkloadInterval, live models.KitchenState) ([]models.Recommendation, error) {
	u := live.KitchenUtilization
	if math.IsNaN(u) || u < 0 {
		return nil, e.invalid("live_state.kitchen_utilization", -1, fmt.Errorf("%w: %v", customerrors.ErrOutOfRange, u))
	}
	if live.StaffCount < 0 {
		return nil, e.invalid("live_state.staff_count", -1, fmt.Errorf("%w: %d", customerrors.ErrNegativeStaff, live.StaffCount))
	}

	recs := recommend.Recommend(w, live, e.rules)
	for _, r := range recs {
		metrics.RecommendationsTotal.WithLabelValues(r.Kind()).Inc()
	}
	e.logger.Debug().Int("recommendations", len(recs)).Msg("Recommendations generated")
	return recs, nil
}

// SimulateScenario projects KPIs for the accepted recommendation titles.
func (e *Engine) SimulateScenario(recs []models.Recommendation, accepted []string, demand models.DemandSummary) (models.ScenarioResult, error) {
	if math.IsNaN(demand.PeakOrders) || demand.PeakOrders < 0 {
		return models.ScenarioResult{}, e.invalid("demand_summary.peak_orders", -1, fmt.Errorf("%w: %v", customerrors.ErrOutOfRange, demand.PeakOrders))
	}
	result := scenario.Simulate(recs, accepted, demand)
	e.logger.Debug().
		Int("accepted", len(accepted)).
		Float64("avg_wait_minutes", result.AvgWaitTimeMinutes).
		Float64("satisfaction", result.CustomerSatisfactionScore).
		Msg("Scenario simulated")
	return result, nil
}

// runSummary is the JSON document stored with each run.
type runSummary struct {
	BurnoutRisk         float64  `json:"burnout_risk"`
	CustomerImpactScore float64  `json:"customer_impact_score"`
	EfficiencyScore     float64  `json:"efficiency_score"`
	TotalOrders         float64  `json:"total_orders"`
	PeakOrders          float64  `json:"peak_orders"`
	Recommendations     []string `json:"recommendations"`
}

// RecordRun stores an analysis in the history store, if one is configured,
// and returns the run id.
func (e *Engine) RecordRun(ctx context.Context, w []models.WorkloadInterval, recs []models.Recommendation) (string, error) {
	if e.history == nil || len(w) == 0 {
		return "", nil
	}

	risk := workload.Summarize(w)
	points := make([]models.DemandForecastPoint, len(w))
	for i := range w {
		points[i] = w[i].DemandForecastPoint
	}
	demand := scenario.SummarizeForecast(points)

	summary := runSummary{
		BurnoutRisk:         risk.BurnoutRisk,
		CustomerImpactScore: risk.CustomerImpactScore,
		EfficiencyScore:     risk.EfficiencyScore,
		TotalOrders:         demand.TotalOrders,
		PeakOrders:          demand.PeakOrders,
		Recommendations:     make([]string, 0, len(recs)),
	}
	for _, r := range recs {
		summary.Recommendations = append(summary.Recommendations, r.Title())
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal run summary: %w", err)
	}

	id, err := e.history.SaveRun(ctx, store.Run{
		HorizonStart:    w[0].CapacityInterval.Start,
		Intervals:       len(w),
		OverloadPeriods: len(risk.OverloadPeriods),
		IdlePeriods:     len(risk.IdlePeriods),
		Recommendations: len(recs),
		SummaryJSON:     string(data),
	})
	if err != nil {
		return "", err
	}
	e.logger.Info().Str("run_id", id).Msg("Analysis run recorded")
	return id, nil
}

func (e *Engine) invalid(field string, index int, err error) error {
	metrics.ValidationErrorsTotal.WithLabelValues(field).Inc()
	return &customerrors.ValidationError{Field: field, Index: index, Err: err}
}
