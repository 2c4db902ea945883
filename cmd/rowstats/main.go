package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"rowstats/internal/byteview"
	"rowstats/internal/config"
	"rowstats/internal/format"
	"rowstats/internal/metrics"
	"rowstats/internal/metrics/datadog"
	"rowstats/internal/metrics/prompush"
	"rowstats/internal/pipeline"
	"rowstats/internal/record"
	"rowstats/internal/skiplog"
	"rowstats/internal/storage"
	"rowstats/internal/tracing"
	"rowstats/internal/verify"

	"github.com/pkg/profile"

	// register all backends with the storage factory; -sink picks one.
	_ "rowstats/internal/storage/all"
)

// main loads and validates the configuration, wires the diagnostics backends,
// then runs one scan.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid")
		os.Exit(1)
	}

	flushMetrics := setupMetrics(cfg)
	stopProfile := startProfile(cfg.Profile)
	shutdownTracing, err := tracing.Setup(cfg.Trace, cfg.Job, traceWriter(cfg.Trace))
	if err != nil {
		fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg, os.Stdout)
	stop()
	stopProfile()
	flushTracing(shutdownTracing)
	flushMetrics()

	if err != nil {
		var mismatch *verify.MismatchError
		if errors.As(err, &mismatch) {
			fmt.Fprintln(os.Stderr, mismatch.Diff)
			fatalf("output differs from %s", mismatch.Path)
		}
		fatalf("%v", err)
	}
}

// run scans cfg.Input and writes the rendered summary to cfg.Out, or to
// stdout when Out is empty.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	decoder, err := record.DecoderFor(cfg.Numeric)
	if err != nil {
		return err
	}
	policy, err := pipeline.ParsePolicy(cfg.OnMalformed)
	if err != nil {
		return err
	}

	view, err := byteview.Open(cfg.Input, cfg.View)
	if err != nil {
		return err
	}
	defer view.Close()

	opts := pipeline.Options{
		Workers:    cfg.Workers,
		WindowSize: cfg.WindowSize,
		Overlap:    cfg.Overlap,
		MaxKey:     cfg.MaxKey,
		Decoder:    decoder,
		Policy:     policy,
		Job:        cfg.Job,
	}
	var skips *skiplog.Log
	if policy == pipeline.PolicySkip {
		var closeSkips func()
		skips, closeSkips, err = skiplog.New(cfg.SkipLog)
		if err != nil {
			return err
		}
		defer closeSkips()
		opts.Skips = skips
	}

	if cfg.Verbose {
		log.Printf("scan: input=%s view=%s bytes=%d workers=%d window=%d strategy=%s numeric=%s",
			cfg.Input, cfg.View, view.Len(), cfg.Workers, cfg.WindowSize, cfg.Strategy, cfg.Numeric)
	}

	entries, stats, err := pipeline.Summarize(ctx, view, opts, cfg.Strategy)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		logStats(stats)
		logSkips(skips)
	}

	out := format.Render(entries)
	if err := writeOutput(cfg.Out, stdout, out); err != nil {
		return err
	}

	if cfg.Sink != "" {
		start := time.Now()
		n, err := storage.WriteSummaries(ctx, storage.Config{
			Kind:  cfg.Sink,
			DSN:   cfg.SinkDSN,
			Table: cfg.SinkTable,
		}, entries)
		metrics.RecordStep(cfg.Job, "store", err, time.Since(start))
		if err != nil {
			return err
		}
		metrics.RecordRow(cfg.Job, "stored", n)
		if cfg.Verbose {
			log.Printf("sink: kind=%s table=%s rows=%d", cfg.Sink, cfg.SinkTable, n)
		}
	}

	if cfg.Expect != "" {
		if err := verify.File(cfg.Expect, out); err != nil {
			return err
		}
		if cfg.Verbose {
			log.Printf("verify: output matches %s", cfg.Expect)
		}
	}
	return nil
}

func writeOutput(path string, stdout io.Writer, out string) error {
	if path == "" {
		_, err := fmt.Fprintln(stdout, out)
		return err
	}
	if err := os.WriteFile(path, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func logStats(s pipeline.Stats) {
	rate := float64(s.Records)
	if secs := s.Duration.Seconds(); secs > 0 {
		rate /= secs
	}
	log.Printf("scan: records=%d skipped=%d keys=%d windows=%d workers=%d duration=%s rate=%.0f/s",
		s.Records, s.TotalSkipped(), s.Keys, s.Windows, s.Workers, s.Duration.Truncate(time.Millisecond), rate)
}

// logSkips prints one line per skip reason. skips is nil under the abort
// policy.
func logSkips(skips *skiplog.Log) {
	if skips == nil || skips.Total() == 0 {
		return
	}
	for _, r := range skips.Reasons() {
		log.Printf("skip: reason=%s count=%d", r, skips.Count(r))
	}
}

func traceWriter(mode string) io.Writer {
	if mode == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// flushTracing exports buffered spans, giving up after a few seconds.
func flushTracing(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Printf("tracing: shutdown error: %v", err)
	}
}

// setupMetrics installs the configured backend and returns its flush func.
func setupMetrics(cfg *config.Config) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.MetricsBackend {
	case "pushgateway":
		b, err = prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.DogstatsdAddr,
			Namespace:  "rowstats.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
	case "", "none":
		return func() {}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.MetricsBackend)
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", cfg.MetricsBackend, err)
		return func() {}
	}
	if cfg.Verbose {
		log.Printf("metrics: backend=%s job=%s", cfg.MetricsBackend, cfg.Job)
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

// startProfile starts a pprof profile in the working directory.
func startProfile(mode string) func() {
	switch mode {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop
	}
	return func() {}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
