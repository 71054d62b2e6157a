package models

import (
	"fmt"
	"time"
)

// Category groups recommendations by the operational lever they pull. The
// simulator applies adjustments once per category.
type Category string

const (
	CategoryStaffing   Category = "staffing"
	CategoryPrepAction Category = "prep_action"
	CategoryWorkflow   Category = "workflow"
)

// Rank orders categories for tie-breaking: staffing first, workflow last.
func (c Category) Rank() int {
	switch c {
	case CategoryStaffing:
		return 0
	case CategoryPrepAction:
		return 1
	case CategoryWorkflow:
		return 2
	}
	return 3
}

// Priority is the coarse urgency shown to operators.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Details holds the fields every recommendation carries.
type Details struct {
	Reasoning       string
	ImpactIfIgnored string
	SuggestedAction string
	Confidence      float64
	Priority        Priority
}

// Recommendation is a closed set of variants: IncreaseStaff, ReduceStaff,
// PrepAction, BalanceWorkload and ReallocateStation.
type Recommendation interface {
	// Kind is the stable machine name of the variant.
	Kind() string
	Category() Category
	// Title is the label operators accept a recommendation by.
	Title() string
	Info() Details
	isRecommendation()
}

// IncreaseStaff asks for more staff of Role at Period.
type IncreaseStaff struct {
	Details
	Period          time.Time
	Role            Role
	Current         int
	Recommended     int
	PredictedOrders float64
	CapacityOrders  float64
}

func (r IncreaseStaff) Kind() string       { return "increase_staff" }
func (r IncreaseStaff) Category() Category { return CategoryStaffing }
func (r IncreaseStaff) Info() Details      { return r.Details }
func (IncreaseStaff) isRecommendation()    {}

func (r IncreaseStaff) Title() string {
	return fmt.Sprintf("Increase %s staff from %d to %d at %s", r.Role, r.Current, r.Recommended, r.Period.Format("15:04"))
}

// ReduceStaff asks for fewer staff at an idle Period.
type ReduceStaff struct {
	Details
	Period          time.Time
	Current         int
	Recommended     int
	PredictedOrders float64
	CapacityOrders  float64
}

func (r ReduceStaff) Kind() string       { return "reduce_staff" }
func (r ReduceStaff) Category() Category { return CategoryStaffing }
func (r ReduceStaff) Info() Details      { return r.Details }
func (ReduceStaff) isRecommendation()    {}

func (r ReduceStaff) Title() string {
	return fmt.Sprintf("Reduce staff from %d to %d at %s", r.Current, r.Recommended, r.Period.Format("15:04"))
}

// PrepAction asks the kitchen to pre-prep ahead of a demand spike at Period.
type PrepAction struct {
	Details
	Period          time.Time
	PredictedOrders float64
	MinutesUntil    int
}

func (r PrepAction) Kind() string       { return "prep_action" }
func (r PrepAction) Category() Category { return CategoryPrepAction }
func (r PrepAction) Info() Details      { return r.Details }
func (PrepAction) isRecommendation()    {}

func (r PrepAction) Title() string {
	return fmt.Sprintf("Pre-prep high-demand items for %s spike", r.Period.Format("15:04"))
}

// BalanceWorkload flags horizon-wide burnout risk.
type BalanceWorkload struct {
	Details
	BurnoutRisk float64
}

func (r BalanceWorkload) Kind() string       { return "balance_workload" }
func (r BalanceWorkload) Category() Category { return CategoryWorkflow }
func (r BalanceWorkload) Info() Details      { return r.Details }
func (BalanceWorkload) isRecommendation()    {}

func (r BalanceWorkload) Title() string {
	return "Balance workload across peak periods"
}

// ReallocateStation dedicates a prep station to a bottleneck item.
type ReallocateStation struct {
	Details
	Item string
}

func (r ReallocateStation) Kind() string       { return "reallocate_station" }
func (r ReallocateStation) Category() Category { return CategoryWorkflow }
func (r ReallocateStation) Info() Details      { return r.Details }
func (ReallocateStation) isRecommendation()    {}

func (r ReallocateStation) Title() string {
	return fmt.Sprintf("Reallocate prep resources for %s", r.Item)
}
