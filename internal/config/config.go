// Package config centralizes rowstats configuration. Every tunable is a
// command-line flag whose default is seeded from an environment variable, so
// `-help` lists all knobs and deployments can configure through the
// environment alone.
//
// Typical usage:
//
//	cfg := config.Load() // reads .env, os.Args and os.Environ
//
// Tests use LoadFromArgs to stay hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-workers=4"})
package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all process configuration derived from flags and
// environment variables. It is a plain value and safe to copy.
type Config struct {
	// Input
	Input string // path of the measurements file
	View  string // byte view provider: mmap, readat or heap

	// Scan
	Workers    int
	WindowSize int    // nominal window size in bytes
	Overlap    int    // boundary scan margin in bytes
	MaxKey     int    // longest accepted key in bytes
	Strategy   string // scalar or batched
	Numeric    string // fixed or float

	// Malformed records
	OnMalformed string // abort or skip
	SkipLog     string // optional CSV of skipped records

	// Output
	Out    string // output file; empty means stdout
	Expect string // expected-output file to verify against

	// Summary sink
	Sink      string // storage kind; empty disables
	SinkDSN   string
	SinkTable string

	// Metrics
	MetricsBackend string // none, pushgateway or datadog
	PushgatewayURL string
	DogstatsdAddr  string
	Job            string

	// Diagnostics
	Profile string // off, cpu or mem
	Trace   string // off, stdout or stderr
	Verbose bool
}

// LoadFromArgs defines flags on fs, seeds each default from getenv and
// parses args.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit flags in args override the seeded defaults.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	envOrDefaultFn := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOrDefaultFn := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOrDefaultFn := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}

	fs.StringVar(&cfg.Input, "input", envOrDefaultFn("ROWSTATS_INPUT", "measurements.txt"), "Path to the <key>;<value> measurements file")
	fs.StringVar(&cfg.View, "view", envOrDefaultFn("ROWSTATS_VIEW", "mmap"), "Byte view: mmap, readat or heap")

	fs.IntVar(&cfg.Workers, "workers", intEnvOrDefaultFn("ROWSTATS_WORKERS", runtime.NumCPU()), "Number of parallel workers")
	fs.IntVar(&cfg.WindowSize, "window", intEnvOrDefaultFn("ROWSTATS_WINDOW", 32<<20), "Nominal window size in bytes")
	fs.IntVar(&cfg.Overlap, "overlap", intEnvOrDefaultFn("ROWSTATS_OVERLAP", 100+1+5), "Boundary scan margin in bytes (>= longest record)")
	fs.IntVar(&cfg.MaxKey, "max_key", intEnvOrDefaultFn("ROWSTATS_MAX_KEY", 100), "Longest accepted key in bytes")
	fs.StringVar(&cfg.Strategy, "strategy", envOrDefaultFn("ROWSTATS_STRATEGY", "scalar"), "Aggregation strategy: scalar or batched")
	fs.StringVar(&cfg.Numeric, "numeric", envOrDefaultFn("ROWSTATS_NUMERIC", "fixed"), "Numeric decoder: fixed or float")

	fs.StringVar(&cfg.OnMalformed, "on_malformed", envOrDefaultFn("ROWSTATS_ON_MALFORMED", "abort"), "Malformed record policy: abort or skip")
	fs.StringVar(&cfg.SkipLog, "skip_log", getenv("ROWSTATS_SKIP_LOG"), "CSV file for skipped records (skip policy only)")

	fs.StringVar(&cfg.Out, "out", getenv("ROWSTATS_OUT"), "Write the summary to this file instead of stdout")
	fs.StringVar(&cfg.Expect, "expect", getenv("ROWSTATS_EXPECT"), "Compare the summary with this file and fail on mismatch")

	fs.StringVar(&cfg.Sink, "sink", getenv("ROWSTATS_SINK"), "Store summaries in a database: sqlite, postgres, mssql or mysql")
	fs.StringVar(&cfg.SinkDSN, "sink_dsn", getenv("ROWSTATS_SINK_DSN"), "DSN for the summary sink")
	fs.StringVar(&cfg.SinkTable, "sink_table", envOrDefaultFn("ROWSTATS_SINK_TABLE", "station_summary"), "Table for the summary sink")

	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", envOrDefaultFn("METRICS_BACKEND", "none"), "Metrics backend: none, pushgateway or datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", envOrDefaultFn("PUSHGATEWAY_URL", "http://localhost:9091"), "Prometheus Pushgateway URL")
	fs.StringVar(&cfg.DogstatsdAddr, "dogstatsd_addr", envOrDefaultFn("DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address")
	fs.StringVar(&cfg.Job, "job", envOrDefaultFn("ROWSTATS_JOB", "rowstats"), "Job name for metrics")

	fs.StringVar(&cfg.Profile, "profile", envOrDefaultFn("ROWSTATS_PROFILE", "off"), "Profile mode: off, cpu or mem")
	fs.StringVar(&cfg.Trace, "trace", envOrDefaultFn("ROWSTATS_TRACE", "off"), "Export pipeline spans: off, stdout or stderr")
	fs.BoolVar(&cfg.Verbose, "v", boolEnvOrDefaultFn("ROWSTATS_VERBOSE", false), "Verbose logging")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}
	return cfg, nil
}

// Load is the production entry point. It loads a .env file from the working
// directory when present (never overriding variables already set), then
// parses os.Args[1:] against flag.CommandLine with os.Getenv fallbacks.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}
