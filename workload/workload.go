// Package workload matches forecast demand against scheduled capacity,
// classifies every interval and extracts contiguous risk periods.
package workload

import (
	"fmt"
	"math"

	customerrors "staffing-risk/errors"
	"staffing-risk/models"
)

// MaxReportedUtilization stands in for unbounded utilization (demand with
// zero capacity) so reports never carry Inf.
const MaxReportedUtilization = 999.9

// Utilization returns demand as a percentage of capacity. It is +Inf when
// there is demand but no capacity and 0 when both are zero.
func Utilization(demand, capacity float64) float64 {
	if capacity <= 0 {
		if demand > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return demand / capacity * 100
}

// Classify maps a utilization percentage to a status and a risk score in
// [0, 100]. Thresholds are evaluated from overload downwards.
func Classify(utilization float64) (models.Status, float64) {
	switch {
	case utilization > 100:
		return models.StatusOverload, math.Min(100, utilization-100)
	case utilization > 80:
		return models.StatusHigh, (utilization - 80) / 20 * 50
	case utilization > 40:
		return models.StatusOptimal, 0
	default:
		return models.StatusIdle, (40 - math.Max(0, utilization)) / 40 * 30
	}
}

// Validate checks that forecast and capacity line up one-to-one on the grid.
func Validate(forecast []models.DemandForecastPoint, capacity []models.CapacityInterval) error {
	if len(forecast) != len(capacity) {
		return &customerrors.ValidationError{
			Field: "forecast",
			Index: -1,
			Err:   fmt.Errorf("%w: %d forecast points, %d capacity intervals", customerrors.ErrLengthMismatch, len(forecast), len(capacity)),
		}
	}
	for i := range forecast {
		if !forecast[i].Timestamp.Equal(capacity[i].Start) {
			return &customerrors.ValidationError{
				Field: "forecast",
				Index: i,
				Err: fmt.Errorf("%w: forecast at %s, capacity at %s", customerrors.ErrMisaligned,
					forecast[i].Timestamp.Format("2006-01-02T15:04"), capacity[i].Start.Format("2006-01-02T15:04")),
			}
		}
	}
	return nil
}

// Analyze joins forecast and capacity index by index. Callers validate the
// pairing first; extra elements of the longer slice are ignored.
func Analyze(forecast []models.DemandForecastPoint, capacity []models.CapacityInterval) []models.WorkloadInterval {
	n := min(len(forecast), len(capacity))
	out := make([]models.WorkloadInterval, n)
	for i := 0; i < n; i++ {
		demand := forecast[i].PredictedOrders
		capOrders := capacity[i].CapacityOrders

		utilization := Utilization(demand, capOrders)
		status, risk := Classify(utilization)
		if math.IsInf(utilization, 1) {
			utilization = MaxReportedUtilization
		}

		out[i] = models.WorkloadInterval{
			CapacityInterval:    capacity[i],
			DemandForecastPoint: forecast[i],
			UtilizationPercent:  utilization,
			Status:              status,
			RiskScore:           risk,
			Gap:                 demand - capOrders,
		}
	}
	return out
}

// Runs run-length encodes the workload by status. Each maximal run of equal
// status becomes one period ending where the next run starts, or at the end
// of the last interval.
func Runs(workload []models.WorkloadInterval) []models.RiskPeriod {
	var periods []models.RiskPeriod
	for i, w := range workload {
		if i > 0 && workload[i-1].Status == w.Status {
			continue
		}
		if n := len(periods); n > 0 {
			periods[n-1].End = w.CapacityInterval.Start
		}
		periods = append(periods, models.RiskPeriod{Status: w.Status, Start: w.CapacityInterval.Start})
	}
	if n := len(periods); n > 0 {
		periods[n-1].End = workload[len(workload)-1].End
	}
	return periods
}

// Periods returns the runs of a single status in time order.
func Periods(workload []models.WorkloadInterval, status models.Status) []models.RiskPeriod {
	var out []models.RiskPeriod
	for _, p := range Runs(workload) {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// Summarize scores the horizon as a whole. Burnout is twice the mean risk of
// the overload intervals, so it ignores how long the horizon is. Customer
// impact grows with unserved orders and efficiency drops with idle time.
// All scores are in [0, 100].
func Summarize(workload []models.WorkloadInterval) models.RiskSummary {
	summary := models.RiskSummary{
		OverloadPeriods: Periods(workload, models.StatusOverload),
		IdlePeriods:     Periods(workload, models.StatusIdle),
		EfficiencyScore: 100,
	}
	if len(workload) == 0 {
		return summary
	}

	var overloadRisk, idleRisk, impact float64
	overloaded := 0
	for _, w := range workload {
		switch w.Status {
		case models.StatusOverload:
			overloaded++
			overloadRisk += w.RiskScore
			// each unserved order costs two impact points
			impact += math.Max(0, w.Gap) * 2
		case models.StatusIdle:
			idleRisk += w.RiskScore
		}
	}
	n := float64(len(workload))
	if overloaded > 0 {
		summary.BurnoutRisk = math.Min(100, overloadRisk/float64(overloaded)*2)
	}
	summary.CustomerImpactScore = math.Min(100, impact/n)
	summary.EfficiencyScore = 100 - math.Min(100, idleRisk/n*2)
	return summary
}
