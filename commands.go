package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"staffing-risk/engine"
	"staffing-risk/forecast"
	"staffing-risk/formatter"
	"staffing-risk/models"
	"staffing-risk/parser"
	"staffing-risk/scenario"
	"staffing-risk/scheduler"
	"staffing-risk/store"
	"staffing-risk/workload"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var validFormats = map[string]bool{"text": true, "json": true, "csv": true}

func historyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "history",
			Usage: "CSV of timestamp,orders demand buckets",
		},
		&cli.StringFlag{
			Name:  "orders",
			Usage: "CSV of order timestamps, bucketed onto the grid",
		},
	}
}

func horizonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.TimestampFlag{
			Name:   "start",
			Layout: time.RFC3339,
			Usage:  "Horizon start (RFC3339), defaults to the current interval",
		},
	}
}

func kitchenFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "shifts",
			Aliases:  []string{"s"},
			Usage:    "CSV of start,end,staff_count,role shifts",
			Required: true,
		},
		&cli.Float64Flag{
			Name:  "utilization",
			Usage: "Live kitchen utilization (between 0 and 1)",
		},
		&cli.IntFlag{
			Name:  "staff",
			Usage: "Staff currently on the floor",
		},
		&cli.IntFlag{
			Name:  "active-orders",
			Usage: "Orders currently in the kitchen",
		},
		&cli.StringSliceFlag{
			Name:  "bottleneck",
			Usage: "Menu item currently holding up the line (repeatable)",
		},
	}
}

// =============================================================================
// TRAIN COMMAND
// =============================================================================

func trainCommand() *cli.Command {
	return &cli.Command{
		Name:   "train",
		Usage:  "Store demand history and fit the demand model on it",
		Flags:  historyFlags(),
		Action: runTrain,
	}
}

func runTrain(c *cli.Context) error {
	ctx := c.Context
	history, err := openStore(ctx)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	buckets, err := readHistory(c)
	if err != nil {
		return err
	}
	if history != nil && len(buckets) > 0 {
		if err := history.SaveBuckets(ctx, buckets); err != nil {
			return fmt.Errorf("save history: %w", err)
		}
		log.Info().Int("buckets", len(buckets)).Msg("Demand history stored")
	}

	all, err := mergeStored(ctx, history, buckets)
	if err != nil {
		return err
	}
	eng := newEngine(history)
	if err := eng.TrainDemandModel(all); err != nil {
		return err
	}
	model := eng.Model()
	fmt.Printf("Trained %s model on %d samples\n", model.Kind(), model.Samples())
	return nil
}

// =============================================================================
// FORECAST COMMAND
// =============================================================================

func forecastCommand() *cli.Command {
	flags := append(historyFlags(), horizonFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:  "horizon",
			Usage: "Number of intervals to forecast, defaults to the configured horizon",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "Output format (text, json, csv)",
		},
	)
	return &cli.Command{
		Name:   "forecast",
		Usage:  "Forecast orders per interval",
		Flags:  flags,
		Action: runForecast,
	}
}

type forecastRow struct {
	Timestamp       time.Time `json:"timestamp"`
	PredictedOrders float64   `json:"predicted_orders"`
	ConfidenceLower float64   `json:"confidence_lower"`
	ConfidenceUpper float64   `json:"confidence_upper"`
	IsPeakHour      bool      `json:"is_peak_hour"`
}

func runForecast(c *cli.Context) error {
	format := c.String("format")
	if !validFormats[format] {
		return fmt.Errorf("format must be one of: text, json, csv (got: %s)", format)
	}
	horizon := settings.Capacity.HorizonIntervals
	if c.IsSet("horizon") {
		horizon = c.Int("horizon")
	}

	ctx := c.Context
	history, err := openStore(ctx)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	eng, buckets, err := trainedEngine(c, history)
	if err != nil {
		return err
	}
	start := horizonStart(c)
	points, err := eng.ForecastDemand(start, horizon, seedFrom(buckets, start, settings.Interval(), settings.ForecastParams().DefaultLags))
	if err != nil {
		return err
	}

	switch format {
	case "json":
		rows := make([]forecastRow, len(points))
		for i, p := range points {
			rows[i] = forecastRow{p.Timestamp, p.PredictedOrders, p.ConfidenceLower, p.ConfidenceUpper, p.IsPeakHour}
		}
		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "csv":
		fmt.Println("Start,Predicted Orders,Lower,Upper,Peak Hour")
		for _, p := range points {
			fmt.Printf("%s,%.2f,%.2f,%.2f,%t\n", p.Timestamp.Format(time.RFC3339), p.PredictedOrders, p.ConfidenceLower, p.ConfidenceUpper, p.IsPeakHour)
		}
	default:
		for _, p := range points {
			peak := ""
			if p.IsPeakHour {
				peak = " *"
			}
			fmt.Printf("%s%s : predicted=%.1f [%.1f, %.1f]\n", p.Timestamp.Format("2006-01-02 15:04"), peak, p.PredictedOrders, p.ConfidenceLower, p.ConfidenceUpper)
		}
	}
	return nil
}

// =============================================================================
// ANALYZE COMMAND
// =============================================================================

func analyzeCommand() *cli.Command {
	flags := append(historyFlags(), horizonFlags()...)
	flags = append(flags, kitchenFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "Output format (text, json, csv)",
		},
		&cli.BoolFlag{
			Name:  "record",
			Usage: "Record the analysis in the history store",
		},
	)
	return &cli.Command{
		Name:   "analyze",
		Usage:  "Match forecast demand against the shift schedule and recommend actions",
		Flags:  flags,
		Action: runAnalyze,
	}
}

// analysis is one pass of the pipeline over a horizon.
type analysis struct {
	engine *engine.Engine
	report *formatter.Report
	points []models.DemandForecastPoint
}

func analyze(c *cli.Context, history store.HistoryStore) (*analysis, error) {
	if u := c.Float64("utilization"); u < 0 || u > 1 {
		return nil, fmt.Errorf("utilization must be between 0 and 1")
	}
	shifts, err := parseFile(c.String("shifts"), parser.ParseShifts)
	if err != nil {
		return nil, err
	}

	eng, buckets, err := trainedEngine(c, history)
	if err != nil {
		return nil, err
	}
	start := horizonStart(c)
	capacity, err := eng.CompileCapacity(shifts, start)
	if err != nil {
		return nil, err
	}
	seed := seedFrom(buckets, start, settings.Interval(), settings.ForecastParams().DefaultLags)
	points, err := eng.ForecastDemand(start, len(capacity), seed)
	if err != nil {
		return nil, err
	}
	w, periods, err := eng.AnalyzeWorkload(points, capacity)
	if err != nil {
		return nil, err
	}

	recs, err := eng.Recommend(w, models.KitchenState{
		Now:                start,
		KitchenUtilization: c.Float64("utilization"),
		StaffCount:         c.Int("staff"),
		ActiveOrders:       c.Int("active-orders"),
		BottleneckItems:    c.StringSlice("bottleneck"),
	})
	if err != nil {
		return nil, err
	}

	return &analysis{
		engine: eng,
		points: points,
		report: &formatter.Report{
			HorizonStart:    start,
			Workload:        w,
			Periods:         periods,
			Recommendations: recs,
			Risk:            workload.Summarize(w),
			Schedule:        scheduler.Summarize(shifts, capacity),
			Demand:          scenario.SummarizeForecast(points),
		},
	}, nil
}

func runAnalyze(c *cli.Context) error {
	format := c.String("format")
	if !validFormats[format] {
		return fmt.Errorf("format must be one of: text, json, csv (got: %s)", format)
	}

	ctx := c.Context
	history, err := openStore(ctx)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	a, err := analyze(c, history)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		fmt.Print(formatter.FormatJSON(a.report))
	case "csv":
		fmt.Print(formatter.FormatCSV(a.report))
	default:
		fmt.Print(formatter.FormatText(a.report))
	}

	if c.Bool("record") {
		if history == nil {
			return fmt.Errorf("--record needs a history store (set store.driver)")
		}
		id, err := a.engine.RecordRun(ctx, a.report.Workload, a.report.Recommendations)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Recorded run %s\n", id)
	}
	return nil
}

// =============================================================================
// SIMULATE COMMAND
// =============================================================================

func simulateCommand() *cli.Command {
	flags := append(historyFlags(), horizonFlags()...)
	flags = append(flags, kitchenFlags()...)
	flags = append(flags,
		&cli.StringSliceFlag{
			Name:    "accept",
			Aliases: []string{"a"},
			Usage:   "Title of a recommendation to accept (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "accept-all",
			Usage: "Accept every recommendation",
		},
	)
	return &cli.Command{
		Name:   "simulate",
		Usage:  "Project service KPIs with a set of recommendations accepted",
		Flags:  flags,
		Action: runSimulate,
	}
}

func runSimulate(c *cli.Context) error {
	ctx := c.Context
	history, err := openStore(ctx)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	a, err := analyze(c, history)
	if err != nil {
		return err
	}
	recs := a.report.Recommendations

	accepted := c.StringSlice("accept")
	if c.Bool("accept-all") {
		accepted = accepted[:0]
		for _, r := range recs {
			accepted = append(accepted, r.Title())
		}
	}

	ignored, err := a.engine.SimulateScenario(recs, nil, a.report.Demand)
	if err != nil {
		return err
	}
	result, err := a.engine.SimulateScenario(recs, accepted, a.report.Demand)
	if err != nil {
		return err
	}

	fmt.Println("Recommendations:")
	for _, r := range recs {
		mark := " "
		for _, title := range accepted {
			if title == r.Title() {
				mark = "x"
				break
			}
		}
		fmt.Printf("  [%s] %s\n", mark, r.Title())
	}
	fmt.Println()
	fmt.Print(formatter.FormatScenario(result))

	diff, err := formatter.CompareScenarios(ignored, result)
	if err != nil {
		return err
	}
	if diff != "" {
		fmt.Println()
		fmt.Print(diff)
	}
	return nil
}

// =============================================================================
// RUNS COMMAND
// =============================================================================

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recorded analysis runs, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Maximum number of runs to list",
			},
		},
		Action: runRuns,
	}
}

func runRuns(c *cli.Context) error {
	ctx := c.Context
	history, err := openStore(ctx)
	if err != nil {
		return err
	}
	if history == nil {
		return fmt.Errorf("no history store configured (set store.driver)")
	}
	defer history.Close()

	runs, err := history.Runs(ctx, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  horizon=%s intervals=%d overload=%d idle=%d recommendations=%d\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.HorizonStart.Format("2006-01-02 15:04"),
			r.Intervals, r.OverloadPeriods, r.IdlePeriods, r.Recommendations)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// openStore returns nil when no store driver is configured.
func openStore(ctx context.Context) (store.HistoryStore, error) {
	if settings.Store.Driver == "" {
		return nil, nil
	}
	s, err := store.Open(ctx, settings.Store.Driver, settings.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", settings.Store.Driver, err)
	}
	return s, nil
}

func newEngine(history store.HistoryStore) *engine.Engine {
	opts := []engine.Option{
		engine.WithCapacity(settings.Scheduler()),
		engine.WithForecastParams(settings.ForecastParams()),
		engine.WithRules(settings.Rules()),
	}
	if history != nil {
		opts = append(opts, engine.WithStore(history))
	}
	return engine.New(opts...)
}

// trainedEngine fits a model on the history files plus anything stored.
func trainedEngine(c *cli.Context, history store.HistoryStore) (*engine.Engine, []models.Bucket, error) {
	buckets, err := readHistory(c)
	if err != nil {
		return nil, nil, err
	}
	all, err := mergeStored(c.Context, history, buckets)
	if err != nil {
		return nil, nil, err
	}
	eng := newEngine(history)
	if err := eng.TrainDemandModel(all); err != nil {
		return nil, nil, err
	}
	return eng, all, nil
}

func readHistory(c *cli.Context) ([]models.Bucket, error) {
	var buckets []models.Bucket
	if path := c.String("history"); path != "" {
		b, err := parseFile(path, parser.ParseBuckets)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, b...)
	}
	if path := c.String("orders"); path != "" {
		orders, err := parseFile(path, parser.ParseOrders)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, forecast.AggregateOrders(orders, settings.Interval())...)
	}
	return buckets, nil
}

// mergeStored adds stored buckets to the given ones. A given bucket wins over
// a stored one with the same start.
func mergeStored(ctx context.Context, history store.HistoryStore, buckets []models.Bucket) ([]models.Bucket, error) {
	if history == nil {
		return buckets, nil
	}
	stored, err := history.LoadBuckets(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	byStart := make(map[int64]models.Bucket, len(stored)+len(buckets))
	for _, b := range stored {
		byStart[b.Start.Unix()] = b
	}
	for _, b := range buckets {
		byStart[b.Start.Unix()] = b
	}
	merged := make([]models.Bucket, 0, len(byStart))
	for _, b := range byStart {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start.Before(merged[j].Start) })
	return merged, nil
}

// seedFrom derives the lag context for start from the buckets just before
// it. Without a bucket one interval before start the fallback is used.
func seedFrom(buckets []models.Bucket, start time.Time, interval time.Duration, fallback models.LagContext) models.LagContext {
	start = start.Truncate(interval)
	orders := make(map[int64]float64, len(buckets))
	for _, b := range buckets {
		orders[b.Start.Truncate(interval).Unix()] += b.Orders
	}
	back := func(k int) float64 {
		return orders[start.Add(-time.Duration(k)*interval).Unix()]
	}
	if _, ok := orders[start.Add(-interval).Unix()]; !ok {
		return fallback
	}

	var sum4, sum8 float64
	for k := 1; k <= 8; k++ {
		if k <= 4 {
			sum4 += back(k)
		}
		sum8 += back(k)
	}
	return models.LagContext{
		Prev1:        back(1),
		Prev2:        back(2),
		RollingMean4: sum4 / 4,
		RollingMean8: sum8 / 8,
	}
}

func horizonStart(c *cli.Context) time.Time {
	if ts := c.Timestamp("start"); ts != nil {
		return *ts
	}
	return time.Now().UTC().Truncate(settings.Interval())
}

func parseFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	file, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	data, err := parse(file)
	if err != nil {
		return zero, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return data, nil
}
