package forecast

import (
	"staffing-risk/features"
	"staffing-risk/models"

	"gonum.org/v1/gonum/stat"
)

type slot struct {
	day  int
	hour int
}

// Profile predicts the historical mean for the row's weekday and hour,
// ignoring lags. It backs the model when training data is too thin.
type Profile struct {
	bySlot map[slot]float64
	global float64
}

// NewProfile averages buckets per weekday and hour. With no buckets at all
// every prediction is fallback.
func NewProfile(buckets []models.Bucket, fallback float64) *Profile {
	grouped := make(map[slot][]float64)
	all := make([]float64, 0, len(buckets))
	for _, b := range buckets {
		s := slot{day: features.DayIndex(b.Start), hour: b.Start.Hour()}
		grouped[s] = append(grouped[s], b.Orders)
		all = append(all, b.Orders)
	}

	p := &Profile{bySlot: make(map[slot]float64, len(grouped)), global: fallback}
	if len(all) > 0 {
		p.global = stat.Mean(all, nil)
	}
	for s, vals := range grouped {
		p.bySlot[s] = stat.Mean(vals, nil)
	}
	return p
}

// Predict implements Regressor.
func (p *Profile) Predict(row features.Row) float64 {
	if v, ok := p.bySlot[slot{day: row.DayIndex, hour: row.Hour}]; ok {
		return v
	}
	return p.global
}
