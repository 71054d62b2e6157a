// Package recommend turns an analyzed workload and the live kitchen state
// into ranked operational recommendations.
package recommend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"staffing-risk/models"
	"staffing-risk/scheduler"
	"staffing-risk/workload"
)

// Config holds the thresholds the rules fire on.
type Config struct {
	Capacity scheduler.Config

	// PrepWindowStart and PrepWindowEnd bound how far ahead a spike may be
	// for a prep action to still be useful.
	PrepWindowStart    time.Duration
	PrepWindowEnd      time.Duration
	PrepMinOrders      float64
	PrepMaxUtilization float64
	PrepCandidates     int

	BurnoutThreshold float64
	ReduceFactor     float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		Capacity:           scheduler.DefaultConfig(),
		PrepWindowStart:    15 * time.Minute,
		PrepWindowEnd:      45 * time.Minute,
		PrepMinOrders:      12,
		PrepMaxUtilization: 0.7,
		PrepCandidates:     3,
		BurnoutThreshold:   50,
		ReduceFactor:       0.7,
	}
}

// Recommend evaluates every rule and returns the results ordered by
// descending confidence, ties broken by category rank.
func Recommend(w []models.WorkloadInterval, live models.KitchenState, cfg Config) []models.Recommendation {
	var recs []models.Recommendation

	if r, ok := increaseStaff(w, cfg); ok {
		recs = append(recs, r)
	}
	if r, ok := reduceStaff(w, cfg); ok {
		recs = append(recs, r)
	}
	if r, ok := balanceWorkload(w, cfg); ok {
		recs = append(recs, r)
	}
	recs = append(recs, prepActions(w, live, cfg)...)
	if r, ok := reallocateStation(live); ok {
		recs = append(recs, r)
	}

	Sort(recs)
	return recs
}

// Sort orders recommendations in place by descending confidence, then by
// category rank.
func Sort(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		ci, cj := recs[i].Info().Confidence, recs[j].Info().Confidence
		if ci != cj {
			return ci > cj
		}
		return recs[i].Category().Rank() < recs[j].Category().Rank()
	})
}

// riskiest returns the index of the first interval with the highest risk
// score among those with the given status, or -1.
func riskiest(w []models.WorkloadInterval, status models.Status) int {
	best := -1
	for i := range w {
		if w[i].Status != status {
			continue
		}
		if best < 0 || w[i].RiskScore > w[best].RiskScore {
			best = i
		}
	}
	return best
}

func increaseStaff(w []models.WorkloadInterval, cfg Config) (models.Recommendation, bool) {
	i := riskiest(w, models.StatusOverload)
	if i < 0 {
		return nil, false
	}
	peak := w[i]
	current := peak.StaffByRole[models.RoleKitchen]
	recommended := scheduler.RequiredStaff(peak.PredictedOrders, models.RoleKitchen, cfg.Capacity)
	if recommended <= current {
		return nil, false
	}

	at := peak.CapacityInterval.Start.Format("15:04")
	return models.IncreaseStaff{
		Details: models.Details{
			Reasoning: fmt.Sprintf("Predicted %.0f orders at %s but capacity is only %.0f. Add %d kitchen staff.",
				peak.PredictedOrders, at, peak.CapacityOrders, recommended-current),
			ImpactIfIgnored: fmt.Sprintf("About %.0f orders go unserved at %s. Wait times and backlog grow.", math.Max(0, peak.Gap), at),
			SuggestedAction: fmt.Sprintf("Schedule %d additional kitchen staff to start before %s.", recommended-current, at),
			Confidence:      0.85,
			Priority:        models.PriorityHigh,
		},
		Period:          peak.CapacityInterval.Start,
		Role:            models.RoleKitchen,
		Current:         current,
		Recommended:     recommended,
		PredictedOrders: peak.PredictedOrders,
		CapacityOrders:  peak.CapacityOrders,
	}, true
}

func reduceStaff(w []models.WorkloadInterval, cfg Config) (models.Recommendation, bool) {
	i := riskiest(w, models.StatusIdle)
	if i < 0 {
		return nil, false
	}
	slack := w[i]
	current := slack.TotalStaff
	recommended := max(1, int(math.Floor(float64(current)*cfg.ReduceFactor)))
	if recommended >= current {
		return nil, false
	}

	at := slack.CapacityInterval.Start.Format("15:04")
	return models.ReduceStaff{
		Details: models.Details{
			Reasoning: fmt.Sprintf("Low demand (%.0f orders) at %s with excess capacity (%.0f). Reduce staff to cut costs.",
				slack.PredictedOrders, at, slack.CapacityOrders),
			ImpactIfIgnored: fmt.Sprintf("%d staff are paid for capacity that goes unused at %s.", current-recommended, at),
			SuggestedAction: fmt.Sprintf("Release or reassign %d staff around %s.", current-recommended, at),
			Confidence:      0.75,
			Priority:        models.PriorityMedium,
		},
		Period:          slack.CapacityInterval.Start,
		Current:         current,
		Recommended:     recommended,
		PredictedOrders: slack.PredictedOrders,
		CapacityOrders:  slack.CapacityOrders,
	}, true
}

func balanceWorkload(w []models.WorkloadInterval, cfg Config) (models.Recommendation, bool) {
	burnout := workload.Summarize(w).BurnoutRisk
	if burnout <= cfg.BurnoutThreshold {
		return nil, false
	}
	return models.BalanceWorkload{
		Details: models.Details{
			Reasoning:       fmt.Sprintf("High burnout risk (%.1f%%) detected across overloaded periods.", burnout),
			ImpactIfIgnored: "Sustained overload raises error rates and staff turnover.",
			SuggestedAction: "Distribute peak workload across more staff or stagger shift starts.",
			Confidence:      0.80,
			Priority:        models.PriorityHigh,
		},
		BurnoutRisk: burnout,
	}, true
}

// prepActions looks at the highest-demand intervals only. A spike qualifies
// when it is inside the prep window, busy enough to matter and the kitchen
// has headroom to prep right now.
func prepActions(w []models.WorkloadInterval, live models.KitchenState, cfg Config) []models.Recommendation {
	if live.KitchenUtilization >= cfg.PrepMaxUtilization {
		return nil
	}

	top := make([]models.DemandForecastPoint, 0, len(w))
	for i := range w {
		top = append(top, w[i].DemandForecastPoint)
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].PredictedOrders > top[j].PredictedOrders })
	if len(top) > cfg.PrepCandidates {
		top = top[:cfg.PrepCandidates]
	}

	var recs []models.Recommendation
	for _, p := range top {
		until := p.Timestamp.Sub(live.Now)
		if until < cfg.PrepWindowStart || until > cfg.PrepWindowEnd || p.PredictedOrders <= cfg.PrepMinOrders {
			continue
		}
		at := p.Timestamp.Format("15:04")
		recs = append(recs, models.PrepAction{
			Details: models.Details{
				Reasoning: fmt.Sprintf("Forecast shows %.0f orders expected at %s. Current kitchen utilization is %.0f%%.",
					p.PredictedOrders, at, live.KitchenUtilization*100),
				ImpactIfIgnored: fmt.Sprintf("Wait times could reach %d minutes during the spike.", int(p.PredictedOrders*2.5)),
				SuggestedAction: "Begin pre-prepping the highest-volume items now and staff the prep station.",
				Confidence:      math.Min(0.95, 0.70+p.PredictedOrders/20*0.25),
				Priority:        models.PriorityHigh,
			},
			Period:          p.Timestamp,
			PredictedOrders: p.PredictedOrders,
			MinutesUntil:    int(until.Minutes()),
		})
	}
	return recs
}

func reallocateStation(live models.KitchenState) (models.Recommendation, bool) {
	if len(live.BottleneckItems) == 0 {
		return nil, false
	}
	item := live.BottleneckItems[0]
	return models.ReallocateStation{
		Details: models.Details{
			Reasoning:       fmt.Sprintf("%s is currently the bottleneck item and demand continues.", item),
			ImpactIfIgnored: fmt.Sprintf("Orders containing %s may see 15-20 minute delays.", item),
			SuggestedAction: fmt.Sprintf("Dedicate one prep station to %s and pre-prep its base components.", item),
			Confidence:      0.80,
			Priority:        models.PriorityMedium,
		},
		Item: item,
	}, true
}
