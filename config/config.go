// Package config loads engine settings from an optional YAML file and the
// environment. Environment variables win over the file, which wins over
// Default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"staffing-risk/features"
	"staffing-risk/forecast"
	"staffing-risk/models"
	"staffing-risk/recommend"
	"staffing-risk/scheduler"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STAFFRISK_"

type Config struct {
	Capacity  CapacityConfig  `yaml:"capacity"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Recommend RecommendConfig `yaml:"recommend"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type CapacityConfig struct {
	BaseCapacity     map[models.Role]int `yaml:"base_capacity"`
	IntervalMinutes  int                 `yaml:"interval_minutes"`
	HorizonIntervals int                 `yaml:"horizon_intervals"`
	Containment      string              `yaml:"containment"`
}

type ForecastConfig struct {
	ConfidenceBand     float64                        `yaml:"confidence_band"`
	MinTrainingSamples int                            `yaml:"min_training_samples"`
	Trees              int                            `yaml:"trees"`
	MaxDepth           int                            `yaml:"max_depth"`
	LearningRate       float64                        `yaml:"learning_rate"`
	MinLeaf            int                            `yaml:"min_leaf"`
	DefaultLags        LagConfig                      `yaml:"default_lags"`
	DayPatterns        map[string]features.DayPattern `yaml:"day_patterns"`
}

type LagConfig struct {
	Prev1        float64 `yaml:"prev1"`
	Prev2        float64 `yaml:"prev2"`
	RollingMean4 float64 `yaml:"rolling_mean_4"`
	RollingMean8 float64 `yaml:"rolling_mean_8"`
}

type RecommendConfig struct {
	PrepWindowStartMinutes int     `yaml:"prep_window_start_minutes"`
	PrepWindowEndMinutes   int     `yaml:"prep_window_end_minutes"`
	PrepMinOrders          float64 `yaml:"prep_min_orders"`
	PrepMaxUtilization     float64 `yaml:"prep_max_utilization"`
	BurnoutThreshold       float64 `yaml:"burnout_threshold"`
	ReduceFactor           float64 `yaml:"reduce_factor"`
}

type StoreConfig struct {
	// Driver is sqlite, postgres or empty for no persistence.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Addr    string `yaml:"addr"`
	PushURL string `yaml:"push_url"`
}

// Default returns the built-in settings.
func Default() Config {
	sched := scheduler.DefaultConfig()
	params := forecast.DefaultParams()
	rec := recommend.DefaultConfig()

	patterns := make(map[string]features.DayPattern, len(params.Patterns))
	for day, p := range params.Patterns {
		patterns[strings.ToLower(day.String())] = p
	}

	return Config{
		Capacity: CapacityConfig{
			BaseCapacity:     sched.BaseCapacity,
			IntervalMinutes:  int(sched.Interval / time.Minute),
			HorizonIntervals: sched.Horizon,
			Containment:      string(sched.Containment),
		},
		Forecast: ForecastConfig{
			ConfidenceBand:     params.ConfidenceBand,
			MinTrainingSamples: params.MinSamples,
			Trees:              params.Trees,
			MaxDepth:           params.MaxDepth,
			LearningRate:       params.LearningRate,
			MinLeaf:            params.MinLeaf,
			DefaultLags: LagConfig{
				Prev1:        params.DefaultLags.Prev1,
				Prev2:        params.DefaultLags.Prev2,
				RollingMean4: params.DefaultLags.RollingMean4,
				RollingMean8: params.DefaultLags.RollingMean8,
			},
			DayPatterns: patterns,
		},
		Recommend: RecommendConfig{
			PrepWindowStartMinutes: int(rec.PrepWindowStart / time.Minute),
			PrepWindowEndMinutes:   int(rec.PrepWindowEnd / time.Minute),
			PrepMinOrders:          rec.PrepMinOrders,
			PrepMaxUtilization:     rec.PrepMaxUtilization,
			BurnoutThreshold:       rec.BurnoutThreshold,
			ReduceFactor:           rec.ReduceFactor,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A .env file in the working directory
// is read if present.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		cfg.Forecast.DayPatterns = foldWeekdays(cfg.Forecast.DayPatterns)
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_DSN", &c.Store.DSN)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("METRICS_ADDR", &c.Metrics.Addr)
	str("PUSH_URL", &c.Metrics.PushURL)
	str("CONTAINMENT", &c.Capacity.Containment)
	if err := num("HORIZON_INTERVALS", &c.Capacity.HorizonIntervals); err != nil {
		return err
	}
	return num("MIN_TRAINING_SAMPLES", &c.Forecast.MinTrainingSamples)
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Capacity.IntervalMinutes <= 0 {
		return fmt.Errorf("capacity.interval_minutes must be positive, got %d", c.Capacity.IntervalMinutes)
	}
	if c.Capacity.HorizonIntervals <= 0 {
		return fmt.Errorf("capacity.horizon_intervals must be positive, got %d", c.Capacity.HorizonIntervals)
	}
	switch scheduler.Containment(c.Capacity.Containment) {
	case scheduler.ContainmentStrict, scheduler.ContainmentOverlap:
	default:
		return fmt.Errorf("capacity.containment must be strict or overlap, got %q", c.Capacity.Containment)
	}
	for role, n := range c.Capacity.BaseCapacity {
		if !role.Valid() {
			return fmt.Errorf("capacity.base_capacity: unknown role %q", role)
		}
		if n < 0 {
			return fmt.Errorf("capacity.base_capacity.%s must not be negative, got %d", role, n)
		}
	}
	if c.Forecast.ConfidenceBand < 0 || c.Forecast.ConfidenceBand >= 1 {
		return fmt.Errorf("forecast.confidence_band must be in [0, 1), got %v", c.Forecast.ConfidenceBand)
	}
	if c.Recommend.PrepWindowEndMinutes < c.Recommend.PrepWindowStartMinutes {
		return fmt.Errorf("recommend.prep_window_end_minutes must not precede prep_window_start_minutes")
	}
	if _, err := c.dayPatterns(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	return nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// foldWeekdays lowercases weekday keys. Keys written in the file with other
// casing replace the lowercase defaults.
func foldWeekdays(in map[string]features.DayPattern) map[string]features.DayPattern {
	out := make(map[string]features.DayPattern, len(in))
	for name, p := range in {
		if name == strings.ToLower(name) {
			out[name] = p
		}
	}
	for name, p := range in {
		if name != strings.ToLower(name) {
			out[strings.ToLower(name)] = p
		}
	}
	return out
}

func (c Config) dayPatterns() (features.DayPatterns, error) {
	out := make(features.DayPatterns, len(c.Forecast.DayPatterns))
	for name, p := range c.Forecast.DayPatterns {
		day, ok := weekdays[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("forecast.day_patterns: unknown weekday %q", name)
		}
		if p.PeakStart < 0 || p.PeakEnd > 24 || p.PeakStart > p.PeakEnd {
			return nil, fmt.Errorf("forecast.day_patterns.%s: peak hours %d-%d out of range", name, p.PeakStart, p.PeakEnd)
		}
		out[day] = p
	}
	return out, nil
}

// Interval is the grid step.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Capacity.IntervalMinutes) * time.Minute
}

// Scheduler returns the capacity compiler settings.
func (c Config) Scheduler() scheduler.Config {
	base := make(map[models.Role]int, len(c.Capacity.BaseCapacity))
	for role, n := range c.Capacity.BaseCapacity {
		base[role] = n
	}
	return scheduler.Config{
		Interval:     c.Interval(),
		Horizon:      c.Capacity.HorizonIntervals,
		BaseCapacity: base,
		Containment:  scheduler.Containment(c.Capacity.Containment),
	}
}

// ForecastParams returns the training and inference settings.
func (c Config) ForecastParams() forecast.Params {
	// Validate has already rejected bad weekdays.
	patterns, _ := c.dayPatterns()
	lags := c.Forecast.DefaultLags
	return forecast.Params{
		Interval:       c.Interval(),
		MinSamples:     c.Forecast.MinTrainingSamples,
		Trees:          c.Forecast.Trees,
		MaxDepth:       c.Forecast.MaxDepth,
		LearningRate:   c.Forecast.LearningRate,
		MinLeaf:        c.Forecast.MinLeaf,
		ConfidenceBand: c.Forecast.ConfidenceBand,
		Patterns:       patterns,
		DefaultLags: models.LagContext{
			Prev1:        lags.Prev1,
			Prev2:        lags.Prev2,
			RollingMean4: lags.RollingMean4,
			RollingMean8: lags.RollingMean8,
		},
	}
}

// Rules returns the recommendation thresholds.
func (c Config) Rules() recommend.Config {
	r := c.Recommend
	out := recommend.DefaultConfig()
	out.Capacity = c.Scheduler()
	out.PrepWindowStart = time.Duration(r.PrepWindowStartMinutes) * time.Minute
	out.PrepWindowEnd = time.Duration(r.PrepWindowEndMinutes) * time.Minute
	out.PrepMinOrders = r.PrepMinOrders
	out.PrepMaxUtilization = r.PrepMaxUtilization
	out.BurnoutThreshold = r.BurnoutThreshold
	out.ReduceFactor = r.ReduceFactor
	return out
}
