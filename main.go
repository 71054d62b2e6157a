package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staffing-risk/config"
	"staffing-risk/logging"
	"staffing-risk/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var version = "dev"

// settings is the resolved configuration, filled in by setup.
var settings config.Config

func main() {
	app := &cli.App{
		Name:    "staffing-risk",
		Usage:   "Forecast kitchen demand and flag staffing risk",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{config.EnvPrefix + "CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (console, json)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Address to expose Prometheus metrics (e.g., :9090)",
			},
			&cli.StringFlag{
				Name:  "push-url",
				Usage: "Pushgateway URL to push metrics to (e.g., http://localhost:9091)",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Keep process running after completion to allow for metric scraping",
			},
		},

		Before: setup,
		After:  finish,

		Commands: []*cli.Command{
			trainCommand(),
			forecastCommand(),
			analyzeCommand(),
			simulateCommand(),
			runsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup resolves configuration, then configures logging and the metrics
// server. Command line flags win over the file and the environment.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	if c.IsSet("push-url") {
		cfg.Metrics.PushURL = c.String("push-url")
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	settings = cfg

	if addr := cfg.Metrics.Addr; addr != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
			log.Info().Str("addr", addr).Msg("Metrics server listening on /metrics")
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Error().Err(err).Msg("Metrics server error")
			}
		}()
	}
	return nil
}

// finish pushes metrics and optionally blocks for a final scrape.
func finish(c *cli.Context) error {
	if url := settings.Metrics.PushURL; url != "" {
		if err := push.New(url, "staffing_risk").Gatherer(metrics.Registry).Push(); err != nil {
			log.Error().Err(err).Msg("Error pushing to Pushgateway")
		} else {
			log.Info().Msg("Metrics successfully pushed to Pushgateway")
		}
	}

	if settings.Metrics.Addr == "" {
		return nil
	}
	if c.Bool("wait") {
		log.Info().Msg("Process kept alive for metric scraping. Press Ctrl+C to exit.")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("Exiting...")
	} else if settings.Metrics.PushURL == "" {
		// Small delay to allow a final scrape
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
