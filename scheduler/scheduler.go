package scheduler

import (
	"math"
	"time"

	"staffing-risk/models"
)

// Containment decides when a shift counts toward an interval.
type Containment string

const (
	// ContainmentStrict counts a shift only if [start, end) covers the whole interval.
	ContainmentStrict Containment = "strict"
	// ContainmentOverlap counts a shift if it overlaps the interval at all.
	ContainmentOverlap Containment = "overlap"
)

// Config describes the capacity grid.
type Config struct {
	Interval time.Duration
	Horizon  int
	// BaseCapacity is the number of orders one staff member of a role
	// services per interval.
	BaseCapacity map[models.Role]int
	Containment  Containment
}

// DefaultConfig is a 24h horizon of 15-minute intervals.
func DefaultConfig() Config {
	return Config{
		Interval: 15 * time.Minute,
		Horizon:  96,
		BaseCapacity: map[models.Role]int{
			models.RoleKitchen:  4,
			models.RoleFront:    6,
			models.RoleDelivery: 3,
		},
		Containment: ContainmentStrict,
	}
}

// Compile maps shifts onto the fixed grid starting at horizonStart and
// returns one CapacityInterval per slot. Zero shifts yield zero capacity.
func Compile(shifts []models.Shift, horizonStart time.Time, cfg Config) []models.CapacityInterval {
	intervals := make([]models.CapacityInterval, 0, cfg.Horizon)
	current := horizonStart

	for i := 0; i < cfg.Horizon; i++ {
		intervalEnd := current.Add(cfg.Interval)

		staff := make(map[models.Role]int, len(models.Roles))
		for _, role := range models.Roles {
			staff[role] = 0
		}

		for _, shift := range shifts {
			if !shift.Role.Valid() || !covers(shift, current, intervalEnd, cfg.Containment) {
				continue
			}
			staff[shift.Role] += shift.StaffCount
		}

		total := 0
		capacity := 0.0
		for _, role := range models.Roles {
			total += staff[role]
			capacity += float64(staff[role] * cfg.BaseCapacity[role])
		}

		intervals = append(intervals, models.CapacityInterval{
			Start:          current,
			End:            intervalEnd,
			StaffByRole:    staff,
			TotalStaff:     total,
			CapacityOrders: capacity,
		})
		current = intervalEnd
	}

	return intervals
}

func covers(shift models.Shift, start, end time.Time, policy Containment) bool {
	if policy == ContainmentOverlap {
		return shift.Start.Before(end) && shift.End.After(start)
	}
	return !start.Before(shift.Start) && !end.After(shift.End)
}

// RequiredStaff is the headcount of role needed to service demand orders in
// one interval.
func RequiredStaff(demand float64, role models.Role, cfg Config) int {
	per := cfg.BaseCapacity[role]
	if per <= 0 || demand <= 0 {
		return 0
	}
	return int(math.Ceil(demand / float64(per)))
}

// Summarize reports staff-hours across all shifts and the peak and low
// headcount seen on the grid.
func Summarize(shifts []models.Shift, intervals []models.CapacityInterval) models.ScheduleSummary {
	var summary models.ScheduleSummary
	for _, shift := range shifts {
		// Elapsed duration, not wall clock, so DST transitions count correctly.
		hours := shift.End.Sub(shift.Start).Hours()
		if hours <= 0 {
			continue
		}
		summary.TotalStaffHours += hours * float64(shift.StaffCount)
	}

	for i, interval := range intervals {
		if i == 0 || interval.TotalStaff > summary.PeakStaffCount {
			summary.PeakStaffCount = interval.TotalStaff
		}
		if i == 0 || interval.TotalStaff < summary.LowStaffCount {
			summary.LowStaffCount = interval.TotalStaff
		}
	}
	return summary
}
