package features_test

import (
	"math"
	"testing"
	"time"

	"staffing-risk/features"
	"staffing-risk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	patterns := features.DefaultDayPatterns()

	tests := map[string]struct {
		at      time.Time
		hour    int
		day     int
		peak    bool
		hourSin float64
		hourCos float64
	}{
		"MondayMidnight": {at: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), hour: 0, day: 0, peak: false, hourSin: 0, hourCos: 1},
		"MondayDinner":   {at: time.Date(2024, 6, 3, 18, 30, 0, 0, time.UTC), hour: 18, day: 0, peak: true, hourSin: -1, hourCos: 0},
		"MondayPeakEnd":  {at: time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC), hour: 21, day: 0, peak: false, hourSin: math.Sin(2 * math.Pi * 21 / 24), hourCos: math.Cos(2 * math.Pi * 21 / 24)},
		"SaturdayEarly":  {at: time.Date(2024, 6, 8, 17, 0, 0, 0, time.UTC), hour: 17, day: 5, peak: true, hourSin: math.Sin(2 * math.Pi * 17 / 24), hourCos: math.Cos(2 * math.Pi * 17 / 24)},
		"SundayNoon":     {at: time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC), hour: 12, day: 6, peak: false, hourSin: 0, hourCos: -1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			set := features.Encode(tt.at, patterns)
			assert.Equal(t, tt.hour, set.Hour)
			assert.Equal(t, tt.day, set.DayIndex)
			assert.Equal(t, tt.peak, set.IsPeakHour)
			assert.InDelta(t, tt.hourSin, set.HourSin, 1e-9)
			assert.InDelta(t, tt.hourCos, set.HourCos, 1e-9)
			assert.InDelta(t, 1, set.DaySin*set.DaySin+set.DayCos*set.DayCos, 1e-9)
		})
	}
}

func TestIsPeakMissingDay(t *testing.T) {
	patterns := features.DayPatterns{time.Monday: {PeakStart: 18, PeakEnd: 21}}
	assert.False(t, patterns.IsPeak(time.Date(2024, 6, 4, 19, 0, 0, 0, time.UTC)))
	assert.True(t, patterns.IsPeak(time.Date(2024, 6, 3, 19, 0, 0, 0, time.UTC)))
}

func TestRowVector(t *testing.T) {
	row := features.Row{
		Set:  features.Encode(time.Date(2024, 6, 3, 19, 0, 0, 0, time.UTC), features.DefaultDayPatterns()),
		Lags: models.LagContext{Prev1: 1, Prev2: 2, RollingMean4: 3, RollingMean8: 4},
	}
	v := row.Vector()
	require.Len(t, v, features.Dimensions)
	assert.Equal(t, 1.0, v[4])
	assert.Equal(t, []float64{1, 2, 3, 4}, v[5:])
}
