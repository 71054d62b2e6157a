package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"staffing-risk/config"
	"staffing-risk/features"
	"staffing-risk/forecast"
	"staffing-risk/models"
	"staffing-risk/recommend"
	"staffing-risk/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staffrisk.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chdir moves into an empty directory so no stray .env is picked up.
func chdir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefaultMatchesPackages(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, scheduler.DefaultConfig(), cfg.Scheduler())
	assert.Equal(t, forecast.DefaultParams(), cfg.ForecastParams())
	assert.Equal(t, recommend.DefaultConfig(), cfg.Rules())
}

func TestLoadWithoutFile(t *testing.T) {
	chdir(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	chdir(t)
	path := writeFile(t, `
capacity:
  base_capacity:
    kitchen: 5
  containment: overlap
forecast:
  confidence_band: 0.1
  default_lags:
    prev1: 3
  day_patterns:
    Monday:
      peak_start: 11
      peak_end: 14
recommend:
  burnout_threshold: 60
store:
  driver: sqlite
  dsn: history.db
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	sched := cfg.Scheduler()
	assert.Equal(t, 5, sched.BaseCapacity[models.RoleKitchen])
	assert.Equal(t, 6, sched.BaseCapacity[models.RoleFront], "unset roles keep defaults")
	assert.Equal(t, scheduler.ContainmentOverlap, sched.Containment)

	params := cfg.ForecastParams()
	assert.Equal(t, 0.1, params.ConfidenceBand)
	assert.Equal(t, 3.0, params.DefaultLags.Prev1)
	assert.Equal(t, 7.5, params.DefaultLags.Prev2, "unset lags keep defaults")
	assert.Equal(t, features.DayPattern{PeakStart: 11, PeakEnd: 14}, params.Patterns[time.Monday])
	assert.Equal(t, features.DayPattern{PeakStart: 18, PeakEnd: 22}, params.Patterns[time.Friday])

	assert.Equal(t, 60.0, cfg.Rules().BurnoutThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Rules().PrepWindowStart)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "history.db", cfg.Store.DSN)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t)
	path := writeFile(t, "store:\n  driver: sqlite\n")
	t.Setenv("STAFFRISK_STORE_DRIVER", "postgres")
	t.Setenv("STAFFRISK_STORE_DSN", "postgres://localhost/staffrisk")
	t.Setenv("STAFFRISK_HORIZON_INTERVALS", "48")
	t.Setenv("STAFFRISK_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/staffrisk", cfg.Store.DSN)
	assert.Equal(t, 48, cfg.Scheduler().Horizon)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	chdir(t)
	require.NoError(t, os.WriteFile(".env", []byte("STAFFRISK_METRICS_ADDR=:9191\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("STAFFRISK_METRICS_ADDR") })

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.Metrics.Addr)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]struct {
		yaml string
		env  map[string]string
	}{
		"Malformed":        {yaml: "capacity: [1, 2"},
		"BadContainment":   {yaml: "capacity:\n  containment: partial\n"},
		"ZeroHorizon":      {yaml: "capacity:\n  horizon_intervals: 0\n"},
		"UnknownRole":      {yaml: "capacity:\n  base_capacity:\n    bar: 2\n"},
		"NegativeCapacity": {yaml: "capacity:\n  base_capacity:\n    kitchen: -1\n"},
		"BadBand":          {yaml: "forecast:\n  confidence_band: 1.5\n"},
		"BadWeekday":       {yaml: "forecast:\n  day_patterns:\n    funday:\n      peak_start: 1\n      peak_end: 2\n"},
		"InvertedPeak":     {yaml: "forecast:\n  day_patterns:\n    monday:\n      peak_start: 20\n      peak_end: 18\n"},
		"BadDriver":        {yaml: "store:\n  driver: mongo\n"},
		"BadEnvNumber":     {yaml: "", env: map[string]string{"STAFFRISK_HORIZON_INTERVALS": "many"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			chdir(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load(writeFile(t, tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
