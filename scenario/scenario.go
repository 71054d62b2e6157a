// Package scenario projects operational KPIs under a set of accepted
// recommendations.
package scenario

import (
	"staffing-risk/models"

	"github.com/shopspring/decimal"
)

// DegradationPeak is the per-interval demand above which ignoring every
// recommendation degrades the projection.
const DegradationPeak = 15.0

// kpis carries the projection in exact decimal arithmetic so compounded
// factors round predictably.
type kpis struct {
	avgWait      decimal.Decimal
	maxWait      decimal.Decimal
	backlog      int64
	satisfaction decimal.Decimal
	stress       decimal.Decimal
	waste        decimal.Decimal
}

// adjustment is the fixed effect of accepting one category.
type adjustment struct {
	avgWait      string
	maxWait      string
	backlog      int64
	satisfaction string
	stress       string
	waste        string
}

var (
	baseline = kpis{
		avgWait:      decimal.RequireFromString("18.0"),
		maxWait:      decimal.RequireFromString("35.0"),
		backlog:      2,
		satisfaction: decimal.NewFromInt(85),
		stress:       decimal.NewFromInt(40),
		waste:        decimal.RequireFromString("8.0"),
	}

	// applied in this order, once per category
	effects = []struct {
		category models.Category
		adjust   adjustment
	}{
		{models.CategoryPrepAction, adjustment{avgWait: "0.70", maxWait: "0.65", satisfaction: "8", stress: "-15", waste: "0"}},
		{models.CategoryStaffing, adjustment{avgWait: "0.75", maxWait: "0.70", backlog: -3, satisfaction: "10", stress: "-20", waste: "0"}},
		{models.CategoryWorkflow, adjustment{avgWait: "0.85", maxWait: "0.80", satisfaction: "5", stress: "-10", waste: "0"}},
	}

	degradation = adjustment{avgWait: "1.40", maxWait: "1.50", backlog: 5, satisfaction: "-15", stress: "25", waste: "3.0"}
)

func (k kpis) apply(a adjustment) kpis {
	return kpis{
		avgWait:      k.avgWait.Mul(decimal.RequireFromString(a.avgWait)),
		maxWait:      k.maxWait.Mul(decimal.RequireFromString(a.maxWait)),
		backlog:      max(0, k.backlog+a.backlog),
		satisfaction: k.satisfaction.Add(decimal.RequireFromString(a.satisfaction)),
		stress:       k.stress.Add(decimal.RequireFromString(a.stress)),
		waste:        k.waste.Add(decimal.RequireFromString(a.waste)),
	}
}

// Accepted reports which categories have at least one recommendation whose
// title appears in accepted.
func Accepted(recs []models.Recommendation, accepted []string) map[models.Category]bool {
	titles := make(map[string]struct{}, len(accepted))
	for _, title := range accepted {
		titles[title] = struct{}{}
	}
	out := make(map[models.Category]bool)
	for _, r := range recs {
		if _, ok := titles[r.Title()]; ok {
			out[r.Category()] = true
		}
	}
	return out
}

// Simulate starts from baseline KPIs and compounds the effect of each
// accepted category in the order prep action, staffing, workflow. When the
// accepted list is empty and the forecast peaks above DegradationPeak the
// projection degrades instead. Titles that match no recommendation are
// ignored, so a list of only stale titles projects the baseline.
func Simulate(recs []models.Recommendation, accepted []string, demand models.DemandSummary) models.ScenarioResult {
	categories := Accepted(recs, accepted)

	k := baseline
	for _, e := range effects {
		if categories[e.category] {
			k = k.apply(e.adjust)
		}
	}
	if len(accepted) == 0 && demand.PeakOrders > DegradationPeak {
		k = k.apply(degradation)
	}

	return k.result()
}

// Baseline is the projection with no adjustments at all.
func Baseline() models.ScenarioResult {
	return baseline.result()
}

func (k kpis) result() models.ScenarioResult {
	zero, hundred := decimal.Zero, decimal.NewFromInt(100)
	return models.ScenarioResult{
		AvgWaitTimeMinutes:        k.avgWait.Round(2).InexactFloat64(),
		MaxWaitTimeMinutes:        k.maxWait.Round(2).InexactFloat64(),
		OrderBacklog:              int(max(0, k.backlog)),
		CustomerSatisfactionScore: decimal.Min(hundred, decimal.Max(zero, k.satisfaction)).Round(2).InexactFloat64(),
		KitchenStressLevel:        decimal.Min(hundred, decimal.Max(zero, k.stress)).Round(2).InexactFloat64(),
		WastePercentage:           k.waste.Round(2).InexactFloat64(),
	}
}

// SummarizeForecast reduces a forecast to the totals the simulator and
// reports need. The earliest interval wins a tie for the peak.
func SummarizeForecast(points []models.DemandForecastPoint) models.DemandSummary {
	summary := models.DemandSummary{Intervals: len(points)}
	for i, p := range points {
		summary.TotalOrders += p.PredictedOrders
		if i == 0 || p.PredictedOrders > summary.PeakOrders {
			summary.PeakOrders = p.PredictedOrders
			summary.PeakAt = p.Timestamp
		}
	}
	return summary
}
