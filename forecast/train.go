package forecast

import (
	"sort"
	"time"

	"staffing-risk/features"
	"staffing-risk/models"
)

// Params configures training and inference.
type Params struct {
	Interval       time.Duration
	MinSamples     int
	Trees          int
	MaxDepth       int
	LearningRate   float64
	MinLeaf        int
	ConfidenceBand float64
	Patterns       features.DayPatterns
	DefaultLags    models.LagContext
}

// DefaultParams mirrors the production model settings.
func DefaultParams() Params {
	return Params{
		Interval:       15 * time.Minute,
		MinSamples:     50,
		Trees:          100,
		MaxDepth:       5,
		LearningRate:   0.1,
		MinLeaf:        5,
		ConfidenceBand: 0.25,
		Patterns:       features.DefaultDayPatterns(),
		DefaultLags:    models.DefaultLagContext(),
	}
}

func (p Params) normalized() Params {
	d := DefaultParams()
	if p.Interval <= 0 {
		p.Interval = d.Interval
	}
	if p.Trees <= 0 {
		p.Trees = d.Trees
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	if p.MinLeaf < 1 {
		p.MinLeaf = 1
	}
	if p.ConfidenceBand < 0 {
		p.ConfidenceBand = 0
	}
	if p.Patterns == nil {
		p.Patterns = d.Patterns
	}
	return p
}

// AggregateOrders counts order timestamps per interval. Empty intervals
// between the first and last order are filled with zero so lag features see
// a continuous grid.
func AggregateOrders(orders []time.Time, interval time.Duration) []models.Bucket {
	if len(orders) == 0 || interval <= 0 {
		return nil
	}
	counts := make(map[int64]float64, len(orders))
	first, last := orders[0].Truncate(interval), orders[0].Truncate(interval)
	for _, ts := range orders {
		slot := ts.Truncate(interval)
		counts[slot.UnixNano()]++
		if slot.Before(first) {
			first = slot
		}
		if slot.After(last) {
			last = slot
		}
	}

	var buckets []models.Bucket
	for t := first; !t.After(last); t = t.Add(interval) {
		buckets = append(buckets, models.Bucket{Start: t, Orders: counts[t.UnixNano()]})
	}
	return buckets
}

// BuildRows derives one training row per bucket, in time order. Lag k of a
// bucket is the count observed at Start - k*interval; intervals with no
// bucket count as zero.
func BuildRows(buckets []models.Bucket, interval time.Duration, patterns features.DayPatterns) ([]features.Row, []float64) {
	sorted := append([]models.Bucket(nil), buckets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	counts := make(map[int64]float64, len(sorted))
	for _, b := range sorted {
		counts[b.Start.UnixNano()] += b.Orders
	}
	observed := func(start time.Time, k int) float64 {
		return counts[start.Add(-time.Duration(k)*interval).UnixNano()]
	}
	trailingMean := func(start time.Time, window int) float64 {
		sum := 0.0
		for k := 1; k <= window; k++ {
			sum += observed(start, k)
		}
		return sum / float64(window)
	}

	rows := make([]features.Row, len(sorted))
	target := make([]float64, len(sorted))
	for i, b := range sorted {
		rows[i] = features.Row{
			Set: features.Encode(b.Start, patterns),
			Lags: models.LagContext{
				Prev1:        observed(b.Start, 1),
				Prev2:        observed(b.Start, 2),
				RollingMean4: trailingMean(b.Start, 4),
				RollingMean8: trailingMean(b.Start, 8),
			},
		}
		target[i] = b.Orders
	}
	return rows, target
}

// Train fits a demand model from historical buckets. It never fails: with
// fewer than p.MinSamples buckets it returns a fallback profile model.
func Train(buckets []models.Bucket, p Params) *Model {
	p = p.normalized()
	if len(buckets) < p.MinSamples {
		return &Model{
			regressor: NewProfile(buckets, p.DefaultLags.Prev1),
			params:    p,
			kind:      KindFallback,
			samples:   len(buckets),
		}
	}

	rows, target := BuildRows(buckets, p.Interval, p.Patterns)
	x := make([][]float64, len(rows))
	for i, r := range rows {
		x[i] = r.Vector()
	}
	return &Model{
		regressor: fitEnsemble(x, target, p),
		params:    p,
		kind:      KindBoosted,
		samples:   len(buckets),
	}
}
