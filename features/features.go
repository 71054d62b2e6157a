// Package features encodes timestamps into the cyclical and categorical
// inputs of the demand model.
package features

import (
	"math"
	"time"

	"staffing-risk/models"
)

// Dimensions is the length of a model feature vector.
const Dimensions = 9

// DayPattern is the half-open peak window [PeakStart, PeakEnd) in hours.
type DayPattern struct {
	PeakStart int `yaml:"peak_start"`
	PeakEnd   int `yaml:"peak_end"`
}

// DayPatterns maps each weekday to its peak window.
type DayPatterns map[time.Weekday]DayPattern

// DefaultDayPatterns returns dinner-rush windows, wider on weekends.
func DefaultDayPatterns() DayPatterns {
	return DayPatterns{
		time.Monday:    {PeakStart: 18, PeakEnd: 21},
		time.Tuesday:   {PeakStart: 18, PeakEnd: 21},
		time.Wednesday: {PeakStart: 18, PeakEnd: 21},
		time.Thursday:  {PeakStart: 18, PeakEnd: 21},
		time.Friday:    {PeakStart: 18, PeakEnd: 22},
		time.Saturday:  {PeakStart: 17, PeakEnd: 22},
		time.Sunday:    {PeakStart: 17, PeakEnd: 21},
	}
}

// IsPeak reports whether t falls in its weekday's peak window. Weekdays
// missing from the table have no peak.
func (p DayPatterns) IsPeak(t time.Time) bool {
	pattern, ok := p[t.Weekday()]
	if !ok {
		return false
	}
	h := t.Hour()
	return pattern.PeakStart <= h && h < pattern.PeakEnd
}

// Set is the time-derived part of a feature row.
type Set struct {
	HourSin    float64
	HourCos    float64
	DaySin     float64
	DayCos     float64
	IsPeakHour bool
	Hour       int
	// DayIndex counts from Monday = 0.
	DayIndex int
}

// Encode derives the time features of t. The caller is responsible for
// rejecting zero timestamps.
func Encode(t time.Time, patterns DayPatterns) Set {
	hour := t.Hour()
	day := DayIndex(t)
	return Set{
		HourSin:    math.Sin(2 * math.Pi * float64(hour) / 24),
		HourCos:    math.Cos(2 * math.Pi * float64(hour) / 24),
		DaySin:     math.Sin(2 * math.Pi * float64(day) / 7),
		DayCos:     math.Cos(2 * math.Pi * float64(day) / 7),
		IsPeakHour: patterns.IsPeak(t),
		Hour:       hour,
		DayIndex:   day,
	}
}

// DayIndex returns the weekday of t with Monday = 0 and Sunday = 6.
func DayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Row is a complete model input: time features plus autoregressive lags.
type Row struct {
	Set
	Lags models.LagContext
}

// Vector flattens r in the column order the model is trained with.
func (r Row) Vector() []float64 {
	peak := 0.0
	if r.IsPeakHour {
		peak = 1
	}
	return []float64{
		r.HourSin, r.HourCos, r.DaySin, r.DayCos,
		peak,
		r.Lags.Prev1, r.Lags.Prev2,
		r.Lags.RollingMean4, r.Lags.RollingMean8,
	}
}
