// Package forecast trains the short-horizon demand model and produces
// recursive multi-step forecasts from it.
package forecast

import (
	"math"
	"time"

	"staffing-risk/features"
	"staffing-risk/models"
)

// Regressor maps a feature row to an expected order count.
type Regressor interface {
	Predict(row features.Row) float64
}

// Kind tells which predictor backs a Model.
type Kind string

const (
	KindBoosted  Kind = "boosted"
	KindFallback Kind = "fallback"
	KindCustom   Kind = "custom"
)

// Model is an immutable trained predictor. Share it freely between
// goroutines; retraining produces a new Model.
type Model struct {
	regressor Regressor
	params    Params
	kind      Kind
	samples   int
}

// NewModel wraps an arbitrary regressor, typically a test double.
func NewModel(r Regressor, p Params) *Model {
	return &Model{regressor: r, params: p.normalized(), kind: KindCustom}
}

func (m *Model) Kind() Kind     { return m.kind }
func (m *Model) Samples() int   { return m.samples }
func (m *Model) Params() Params { return m.params }

// Forecast predicts horizon consecutive intervals starting at start. Each
// step after the first feeds on the model's own earlier predictions, so the
// loop is strictly sequential. A non-positive horizon yields nil.
func (m *Model) Forecast(start time.Time, horizon int, seed models.LagContext) []models.DemandForecastPoint {
	if horizon <= 0 {
		return nil
	}

	points := make([]models.DemandForecastPoint, horizon)
	state := newLagState(seed)
	band := m.params.ConfidenceBand
	cumulative := 0.0
	ts := start

	for i := 0; i < horizon; i++ {
		row := features.Row{
			Set:  features.Encode(ts, m.params.Patterns),
			Lags: state.lags(),
		}
		predicted := m.regressor.Predict(row)
		if math.IsNaN(predicted) || predicted < 0 {
			predicted = 0
		}
		cumulative += predicted

		points[i] = models.DemandForecastPoint{
			Timestamp:        ts,
			PredictedOrders:  predicted,
			ConfidenceLower:  math.Max(0, predicted*(1-band)),
			ConfidenceUpper:  predicted * (1 + band),
			IntervalIndex:    i,
			Hour:             row.Hour,
			IsPeakHour:       row.IsPeakHour,
			CumulativeOrders: cumulative,
		}

		state.push(predicted)
		ts = ts.Add(m.params.Interval)
	}
	return points
}

// lagState is the accumulator of the recursive forecast: the last two
// predictions, a ring of the last eight, and their trailing sums.
type lagState struct {
	seed  models.LagContext
	prev1 float64
	prev2 float64
	ring  [8]float64
	n     int
	sum4  float64
	sum8  float64
}

func newLagState(seed models.LagContext) lagState {
	return lagState{seed: seed, prev1: seed.Prev1, prev2: seed.Prev2}
}

// lags blends the seeded rolling means with the predictions produced so far
// until each window is full of predictions.
func (s *lagState) lags() models.LagContext {
	k4 := min(s.n, 4)
	k8 := min(s.n, 8)
	return models.LagContext{
		Prev1:        s.prev1,
		Prev2:        s.prev2,
		RollingMean4: (s.seed.RollingMean4*float64(4-k4) + s.sum4) / 4,
		RollingMean8: (s.seed.RollingMean8*float64(8-k8) + s.sum8) / 8,
	}
}

func (s *lagState) push(v float64) {
	if s.n >= 4 {
		s.sum4 -= s.ring[(s.n-4)%8]
	}
	if s.n >= 8 {
		s.sum8 -= s.ring[s.n%8]
	}
	s.ring[s.n%8] = v
	s.sum4 += v
	s.sum8 += v
	s.n++
	s.prev2 = s.prev1
	s.prev1 = v
}
