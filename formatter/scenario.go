package formatter

import (
	"fmt"
	"strings"

	"staffing-risk/models"

	"github.com/pmezard/go-difflib/difflib"
)

// FormatScenario lists the projected KPIs one per line.
func FormatScenario(result models.ScenarioResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("avg_wait_time_minutes: %.2f\n", result.AvgWaitTimeMinutes))
	sb.WriteString(fmt.Sprintf("max_wait_time_minutes: %.2f\n", result.MaxWaitTimeMinutes))
	sb.WriteString(fmt.Sprintf("order_backlog: %d\n", result.OrderBacklog))
	sb.WriteString(fmt.Sprintf("customer_satisfaction_score: %.2f\n", result.CustomerSatisfactionScore))
	sb.WriteString(fmt.Sprintf("kitchen_stress_level: %.2f\n", result.KitchenStressLevel))
	sb.WriteString(fmt.Sprintf("waste_percentage: %.2f\n", result.WastePercentage))
	return sb.String()
}

// CompareScenarios renders a unified diff from the projection with every
// recommendation ignored to the projection with the accepted set. It is
// empty when both projections agree.
func CompareScenarios(ignored, accepted models.ScenarioResult) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(FormatScenario(ignored)),
		B:        difflib.SplitLines(FormatScenario(accepted)),
		FromFile: "ignored",
		ToFile:   "accepted",
		Context:  6,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff scenarios: %w", err)
	}
	return text, nil
}
