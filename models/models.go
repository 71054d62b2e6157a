package models

import "time"

// Role identifies the kind of work a shift covers.
type Role string

const (
	RoleKitchen  Role = "kitchen"
	RoleFront    Role = "front"
	RoleDelivery Role = "delivery"
)

// Roles lists every role in a fixed order. Iteration over staff maps should
// use this order so output stays deterministic.
var Roles = []Role{RoleKitchen, RoleFront, RoleDelivery}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleKitchen, RoleFront, RoleDelivery:
		return true
	}
	return false
}

// Shift is a block of staff of one role working over [Start, End).
// Shifts come from an external scheduling collaborator and are read-only here.
type Shift struct {
	Start      time.Time
	End        time.Time
	StaffCount int
	Role       Role
}

// Bucket is the observed order count of one historical interval.
type Bucket struct {
	Start  time.Time
	Orders float64
}

// LagContext seeds the autoregressive features of the first forecast step.
type LagContext struct {
	Prev1        float64
	Prev2        float64
	RollingMean4 float64
	RollingMean8 float64
}

// DefaultLagContext returns the seed used when no recent history is supplied.
func DefaultLagContext() LagContext {
	return LagContext{
		Prev1:        8.0,
		Prev2:        7.5,
		RollingMean4: 8.0,
		RollingMean8: 7.8,
	}
}

// CapacityInterval is the staff on hand during one grid interval and the
// number of orders they can service in it.
type CapacityInterval struct {
	Start          time.Time
	End            time.Time
	StaffByRole    map[Role]int
	TotalStaff     int
	CapacityOrders float64
}

// DemandForecastPoint is the predicted order volume of one grid interval.
type DemandForecastPoint struct {
	Timestamp        time.Time
	PredictedOrders  float64
	ConfidenceLower  float64
	ConfidenceUpper  float64
	IntervalIndex    int
	Hour             int
	IsPeakHour       bool
	CumulativeOrders float64
}

// Status classifies how loaded an interval is.
type Status string

const (
	StatusOverload Status = "overload"
	StatusHigh     Status = "high"
	StatusOptimal  Status = "optimal"
	StatusIdle     Status = "idle"
)

// WorkloadInterval joins capacity and forecast for one interval.
type WorkloadInterval struct {
	CapacityInterval
	DemandForecastPoint
	UtilizationPercent float64
	Status             Status
	RiskScore          float64
	// Gap is demand minus capacity; positive values are unserved orders.
	Gap float64
}

// RiskPeriod is a maximal run of consecutive intervals sharing Status.
type RiskPeriod struct {
	Status Status
	Start  time.Time
	End    time.Time
}

// KitchenState is the live operational snapshot supplied by the caller.
type KitchenState struct {
	Now time.Time
	// KitchenUtilization is the current utilization as a fraction in [0,1].
	KitchenUtilization float64
	StaffCount         int
	ActiveOrders       int
	BottleneckItems    []string
}

// DemandSummary condenses a forecast for scenario projection.
type DemandSummary struct {
	Intervals   int
	TotalOrders float64
	PeakOrders  float64
	PeakAt      time.Time
}

// ScheduleSummary describes the staffing plan as a whole.
type ScheduleSummary struct {
	TotalStaffHours float64
	PeakStaffCount  int
	LowStaffCount   int
}

// RiskSummary aggregates workload risk across the horizon.
type RiskSummary struct {
	OverloadPeriods     []RiskPeriod
	IdlePeriods         []RiskPeriod
	BurnoutRisk         float64
	CustomerImpactScore float64
	EfficiencyScore     float64
}

// ScenarioResult holds the projected operational KPIs of a what-if run.
type ScenarioResult struct {
	AvgWaitTimeMinutes        float64
	MaxWaitTimeMinutes        float64
	OrderBacklog              int
	CustomerSatisfactionScore float64
	KitchenStressLevel        float64
	WastePercentage           float64
}
