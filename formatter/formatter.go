package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"staffing-risk/models"
)

const clock = "15:04"

// Report is everything one analysis produced.
type Report struct {
	HorizonStart    time.Time
	Workload        []models.WorkloadInterval
	Periods         []models.RiskPeriod
	Recommendations []models.Recommendation
	Risk            models.RiskSummary
	Schedule        models.ScheduleSummary
	Demand          models.DemandSummary
}

// ReportData is the prepared report shared by all formatters
type ReportData struct {
	HorizonStart    time.Time            `json:"horizon_start"`
	Summary         SummaryData          `json:"summary"`
	Intervals       []IntervalData       `json:"intervals"`
	Periods         []PeriodData         `json:"risk_periods"`
	Recommendations []RecommendationData `json:"recommendations"`
}

// SummaryData holds the horizon-wide scores
type SummaryData struct {
	TotalOrders         float64 `json:"total_orders"`
	PeakOrders          float64 `json:"peak_orders"`
	PeakAt              string  `json:"peak_at,omitempty"`
	TotalStaffHours     float64 `json:"total_staff_hours"`
	PeakStaffCount      int     `json:"peak_staff_count"`
	LowStaffCount       int     `json:"low_staff_count"`
	BurnoutRisk         float64 `json:"burnout_risk"`
	CustomerImpactScore float64 `json:"customer_impact_score"`
	EfficiencyScore     float64 `json:"efficiency_score"`
}

// IntervalData is one row of the workload grid
type IntervalData struct {
	Start           time.Time      `json:"start"`
	PredictedOrders float64        `json:"predicted_orders"`
	ConfidenceLower float64        `json:"confidence_lower"`
	ConfidenceUpper float64        `json:"confidence_upper"`
	IsPeakHour      bool           `json:"is_peak_hour"`
	CapacityOrders  float64        `json:"capacity_orders"`
	StaffByRole     map[string]int `json:"staff_by_role"`
	Utilization     float64        `json:"utilization_percent"`
	Status          string         `json:"status"`
	RiskScore       float64        `json:"risk_score"`
	Gap             float64        `json:"gap"`
}

// PeriodData is a contiguous run of one status
type PeriodData struct {
	Status string    `json:"status"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// RecommendationData flattens a recommendation variant
type RecommendationData struct {
	Kind            string  `json:"kind"`
	Category        string  `json:"category"`
	Title           string  `json:"title"`
	Priority        string  `json:"priority"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	ImpactIfIgnored string  `json:"impact_if_ignored"`
	SuggestedAction string  `json:"suggested_action"`
}

// prepareReportData flattens the report for formatting
func prepareReportData(report *Report) *ReportData {
	data := &ReportData{
		HorizonStart: report.HorizonStart,
		Summary: SummaryData{
			TotalOrders:         report.Demand.TotalOrders,
			PeakOrders:          report.Demand.PeakOrders,
			TotalStaffHours:     report.Schedule.TotalStaffHours,
			PeakStaffCount:      report.Schedule.PeakStaffCount,
			LowStaffCount:       report.Schedule.LowStaffCount,
			BurnoutRisk:         report.Risk.BurnoutRisk,
			CustomerImpactScore: report.Risk.CustomerImpactScore,
			EfficiencyScore:     report.Risk.EfficiencyScore,
		},
		Intervals:       make([]IntervalData, len(report.Workload)),
		Periods:         make([]PeriodData, len(report.Periods)),
		Recommendations: make([]RecommendationData, len(report.Recommendations)),
	}
	if !report.Demand.PeakAt.IsZero() {
		data.Summary.PeakAt = report.Demand.PeakAt.Format(clock)
	}

	for i, w := range report.Workload {
		staff := make(map[string]int, len(models.Roles))
		for _, role := range models.Roles {
			staff[string(role)] = w.StaffByRole[role]
		}
		data.Intervals[i] = IntervalData{
			Start:           w.CapacityInterval.Start,
			PredictedOrders: w.PredictedOrders,
			ConfidenceLower: w.ConfidenceLower,
			ConfidenceUpper: w.ConfidenceUpper,
			IsPeakHour:      w.IsPeakHour,
			CapacityOrders:  w.CapacityOrders,
			StaffByRole:     staff,
			Utilization:     w.UtilizationPercent,
			Status:          string(w.Status),
			RiskScore:       w.RiskScore,
			Gap:             w.Gap,
		}
	}
	for i, p := range report.Periods {
		data.Periods[i] = PeriodData{Status: string(p.Status), Start: p.Start, End: p.End}
	}
	for i, r := range report.Recommendations {
		info := r.Info()
		data.Recommendations[i] = RecommendationData{
			Kind:            r.Kind(),
			Category:        string(r.Category()),
			Title:           r.Title(),
			Priority:        string(info.Priority),
			Confidence:      info.Confidence,
			Reasoning:       info.Reasoning,
			ImpactIfIgnored: info.ImpactIfIgnored,
			SuggestedAction: info.SuggestedAction,
		}
	}
	return data
}

// FormatText returns the text representation of the report
func FormatText(report *Report) string {
	data := prepareReportData(report)
	var sb strings.Builder

	s := data.Summary
	sb.WriteString(fmt.Sprintf("Horizon from %s\n", data.HorizonStart.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("Demand: total=%.1f peak=%.1f", s.TotalOrders, s.PeakOrders))
	if s.PeakAt != "" {
		sb.WriteString(fmt.Sprintf(" at %s", s.PeakAt))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Staff: hours=%.1f peak=%d low=%d\n", s.TotalStaffHours, s.PeakStaffCount, s.LowStaffCount))
	sb.WriteString(fmt.Sprintf("Risk: burnout=%.1f customer_impact=%.1f efficiency=%.1f\n\n",
		s.BurnoutRisk, s.CustomerImpactScore, s.EfficiencyScore))

	for _, interval := range data.Intervals {
		sb.WriteString(formatTextLine(interval))
		sb.WriteString("\n")
		if interval.Status == string(models.StatusOverload) && interval.Gap > 0 {
			sb.WriteString(fmt.Sprintf("  ⚠️  OVERLOAD: Demand=%.1f, Capacity=%.0f, Unserved=%.1f\n",
				interval.PredictedOrders, interval.CapacityOrders, interval.Gap))
		}
	}

	if len(data.Periods) > 0 {
		sb.WriteString("\nRisk periods:\n")
		for _, p := range data.Periods {
			sb.WriteString(fmt.Sprintf("  %-8s %s - %s\n", p.Status, p.Start.Format(clock), p.End.Format(clock)))
		}
	}

	if len(data.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, r := range data.Recommendations {
			sb.WriteString(fmt.Sprintf("  • [%s %.0f%%] %s\n", r.Priority, r.Confidence*100, r.Title))
			sb.WriteString(fmt.Sprintf("      %s\n", r.Reasoning))
			sb.WriteString(fmt.Sprintf("      Action: %s\n", r.SuggestedAction))
		}
	}

	return sb.String()
}

// FormatJSON returns the JSON representation of the report
func FormatJSON(report *Report) string {
	data := prepareReportData(report)
	jsonBytes, _ := json.MarshalIndent(data, "", "  ")
	return string(jsonBytes)
}

// FormatCSV returns one row per interval
func FormatCSV(report *Report) string {
	data := prepareReportData(report)
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	header := []string{"Start", "Predicted Orders", "Lower", "Upper", "Peak Hour", "Capacity Orders"}
	for _, role := range models.Roles {
		header = append(header, strings.ToUpper(string(role)[:1])+string(role)[1:])
	}
	header = append(header, "Utilization %", "Status", "Risk Score", "Gap")
	writer.Write(header)

	for _, interval := range data.Intervals {
		row := []string{
			interval.Start.Format(time.RFC3339),
			fmt.Sprintf("%.2f", interval.PredictedOrders),
			fmt.Sprintf("%.2f", interval.ConfidenceLower),
			fmt.Sprintf("%.2f", interval.ConfidenceUpper),
			yesNo(interval.IsPeakHour),
			fmt.Sprintf("%.0f", interval.CapacityOrders),
		}
		for _, role := range models.Roles {
			row = append(row, fmt.Sprintf("%d", interval.StaffByRole[string(role)]))
		}
		row = append(row,
			fmt.Sprintf("%.1f", interval.Utilization),
			interval.Status,
			fmt.Sprintf("%.2f", interval.RiskScore),
			fmt.Sprintf("%.2f", interval.Gap),
		)
		writer.Write(row)
	}

	writer.Flush()
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// formatTextLine formats a single interval line for text output
func formatTextLine(interval IntervalData) string {
	var staff []string
	for _, role := range models.Roles {
		staff = append(staff, fmt.Sprintf("%s=%d", role, interval.StaffByRole[string(role)]))
	}
	peak := ""
	if interval.IsPeakHour {
		peak = " *"
	}
	return fmt.Sprintf("%s%s : demand=%.1f capacity=%.0f util=%.1f%% %s risk=%.1f ; [%s]",
		interval.Start.Format(clock), peak, interval.PredictedOrders, interval.CapacityOrders,
		interval.Utilization, interval.Status, interval.RiskScore, strings.Join(staff, ", "))
}
