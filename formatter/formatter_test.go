package formatter_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"staffing-risk/formatter"
	"staffing-risk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evening = time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC)

func interval(i int, demand, capacity, utilization float64, status models.Status, risk float64) models.WorkloadInterval {
	start := evening.Add(time.Duration(i) * 15 * time.Minute)
	return models.WorkloadInterval{
		CapacityInterval: models.CapacityInterval{
			Start:          start,
			End:            start.Add(15 * time.Minute),
			StaffByRole:    map[models.Role]int{models.RoleKitchen: 2},
			TotalStaff:     2,
			CapacityOrders: capacity,
		},
		DemandForecastPoint: models.DemandForecastPoint{
			Timestamp:       start,
			PredictedOrders: demand,
			ConfidenceLower: demand * 0.75,
			ConfidenceUpper: demand * 1.25,
			IntervalIndex:   i,
			Hour:            start.Hour(),
			IsPeakHour:      true,
		},
		UtilizationPercent: utilization,
		Status:             status,
		RiskScore:          risk,
		Gap:                demand - capacity,
	}
}

func sampleReport() *formatter.Report {
	return &formatter.Report{
		HorizonStart: evening,
		Workload: []models.WorkloadInterval{
			interval(0, 20, 8, 250, models.StatusOverload, 100),
			interval(1, 6, 8, 75, models.StatusOptimal, 0),
		},
		Periods: []models.RiskPeriod{
			{Status: models.StatusOverload, Start: evening, End: evening.Add(15 * time.Minute)},
		},
		Recommendations: []models.Recommendation{
			models.IncreaseStaff{
				Details: models.Details{
					Reasoning:       "Predicted 20 orders against capacity for 8",
					SuggestedAction: "Call in 3 kitchen staff",
					Confidence:      0.85,
					Priority:        models.PriorityHigh,
				},
				Period:      evening,
				Role:        models.RoleKitchen,
				Current:     2,
				Recommended: 5,
			},
		},
		Risk:     models.RiskSummary{BurnoutRisk: 100, CustomerImpactScore: 12, EfficiencyScore: 100},
		Schedule: models.ScheduleSummary{TotalStaffHours: 0.5, PeakStaffCount: 2, LowStaffCount: 2},
		Demand:   models.DemandSummary{Intervals: 2, TotalOrders: 26, PeakOrders: 20, PeakAt: evening},
	}
}

func TestFormatText(t *testing.T) {
	tests := map[string]struct {
		report   *formatter.Report
		contains []string
		excludes []string
	}{
		"EmptyReport": {
			report: &formatter.Report{HorizonStart: evening},
			contains: []string{
				"Horizon from 2024-06-03 18:00",
				"Demand: total=0.0 peak=0.0\n",
			},
			excludes: []string{"Risk periods:", "Recommendations:", "OVERLOAD"},
		},
		"WithOverload": {
			report: sampleReport(),
			contains: []string{
				"Demand: total=26.0 peak=20.0 at 18:00",
				"Staff: hours=0.5 peak=2 low=2",
				"Risk: burnout=100.0 customer_impact=12.0 efficiency=100.0",
				"18:00 * : demand=20.0 capacity=8 util=250.0% overload risk=100.0 ; [kitchen=2, front=0, delivery=0]",
				"⚠️  OVERLOAD: Demand=20.0, Capacity=8, Unserved=12.0",
				"18:15 * : demand=6.0 capacity=8 util=75.0% optimal risk=0.0",
				"overload 18:00 - 18:15",
				"• [high 85%] Increase kitchen staff from 2 to 5 at 18:00",
				"Action: Call in 3 kitchen staff",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			result := formatter.FormatText(tt.report)
			for _, expected := range tt.contains {
				assert.Contains(t, result, expected)
			}
			for _, unexpected := range tt.excludes {
				assert.NotContains(t, result, unexpected)
			}
		})
	}
}

func TestFormatTextWarnsOncePerOverload(t *testing.T) {
	result := formatter.FormatText(sampleReport())
	assert.Equal(t, 1, strings.Count(result, "OVERLOAD"))
}

func TestFormatJSON(t *testing.T) {
	result := formatter.FormatJSON(sampleReport())

	var data formatter.ReportData
	require.NoError(t, json.Unmarshal([]byte(result), &data))

	assert.Equal(t, "18:00", data.Summary.PeakAt)
	assert.Equal(t, 26.0, data.Summary.TotalOrders)
	require.Len(t, data.Intervals, 2)
	assert.Equal(t, "overload", data.Intervals[0].Status)
	assert.Equal(t, map[string]int{"kitchen": 2, "front": 0, "delivery": 0}, data.Intervals[0].StaffByRole)
	require.Len(t, data.Recommendations, 1)
	assert.Equal(t, "increase_staff", data.Recommendations[0].Kind)
	assert.Equal(t, "staffing", data.Recommendations[0].Category)
	require.Len(t, data.Periods, 1)

	assert.Contains(t, result, `"utilization_percent": 250`)
	assert.Contains(t, result, `"risk_periods"`)
}

func TestFormatCSV(t *testing.T) {
	tests := map[string]struct {
		report   *formatter.Report
		expected []string
	}{
		"HeaderOnly": {
			report: &formatter.Report{},
			expected: []string{
				"Start,Predicted Orders,Lower,Upper,Peak Hour,Capacity Orders,Kitchen,Front,Delivery,Utilization %,Status,Risk Score,Gap",
			},
		},
		"Rows": {
			report: sampleReport(),
			expected: []string{
				"Start,Predicted Orders,Lower,Upper,Peak Hour,Capacity Orders,Kitchen,Front,Delivery,Utilization %,Status,Risk Score,Gap",
				"2024-06-03T18:00:00Z,20.00,15.00,25.00,Yes,8,2,0,0,250.0,overload,100.00,12.00",
				"2024-06-03T18:15:00Z,6.00,4.50,7.50,Yes,8,2,0,0,75.0,optimal,0.00,-2.00",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			result := formatter.FormatCSV(tt.report)
			lines := strings.Split(strings.TrimSpace(result), "\n")
			assert.Equal(t, tt.expected, lines)
		})
	}
}

func TestFormatScenario(t *testing.T) {
	result := formatter.FormatScenario(models.ScenarioResult{
		AvgWaitTimeMinutes:        12.6,
		MaxWaitTimeMinutes:        22.75,
		OrderBacklog:              3,
		CustomerSatisfactionScore: 92,
		KitchenStressLevel:        25,
		WastePercentage:           8,
	})
	assert.Equal(t, "avg_wait_time_minutes: 12.60\n"+
		"max_wait_time_minutes: 22.75\n"+
		"order_backlog: 3\n"+
		"customer_satisfaction_score: 92.00\n"+
		"kitchen_stress_level: 25.00\n"+
		"waste_percentage: 8.00\n", result)
}

func TestCompareScenarios(t *testing.T) {
	ignored := models.ScenarioResult{
		AvgWaitTimeMinutes:        25.2,
		MaxWaitTimeMinutes:        52.5,
		OrderBacklog:              7,
		CustomerSatisfactionScore: 70,
		KitchenStressLevel:        65,
		WastePercentage:           11,
	}
	accepted := ignored
	accepted.AvgWaitTimeMinutes = 12.6
	accepted.OrderBacklog = 0

	diff, err := formatter.CompareScenarios(ignored, accepted)
	require.NoError(t, err)
	assert.Contains(t, diff, "--- ignored")
	assert.Contains(t, diff, "+++ accepted")
	assert.Contains(t, diff, "-avg_wait_time_minutes: 25.20\n")
	assert.Contains(t, diff, "+avg_wait_time_minutes: 12.60\n")
	assert.Contains(t, diff, "-order_backlog: 7\n")
	assert.Contains(t, diff, "+order_backlog: 0\n")
	assert.Contains(t, diff, " waste_percentage: 11.00\n")

	same, err := formatter.CompareScenarios(ignored, ignored)
	require.NoError(t, err)
	assert.Empty(t, same)
}
