package config

import (
	"fmt"
	"strings"

	"rowstats/internal/aggregate"
	"rowstats/internal/byteview"
	"rowstats/internal/pipeline"
	"rowstats/internal/record"
	"rowstats/internal/tracing"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path names the flag.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// recordSlack is the separator plus the longest value ("-99.9").
const recordSlack = 1 + 5

// Validate checks cfg without mutating it.
func Validate(cfg *Config) []Issue {
	var issues []Issue
	errf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(cfg.Input) == "" {
		errf("input", "input path is required")
	}
	if !oneOf(cfg.View, byteview.Kinds...) {
		errf("view", "unknown view %q (want one of %s)", cfg.View, strings.Join(byteview.Kinds, ", "))
	}
	if cfg.Workers < 1 {
		errf("workers", "must be >= 1, got %d", cfg.Workers)
	}
	if cfg.WindowSize < 1 {
		errf("window", "must be >= 1, got %d", cfg.WindowSize)
	}
	if cfg.MaxKey < 1 {
		errf("max_key", "must be >= 1, got %d", cfg.MaxKey)
	}
	if cfg.Overlap < 1 {
		errf("overlap", "must be >= 1, got %d", cfg.Overlap)
	} else if cfg.MaxKey >= 1 && cfg.Overlap < cfg.MaxKey+recordSlack {
		warnf("overlap", "%d is smaller than max_key+%d (%d); long records may fail with a boundary overrun",
			cfg.Overlap, recordSlack, cfg.MaxKey+recordSlack)
	}
	if cfg.WindowSize >= 1 && cfg.Overlap > cfg.WindowSize {
		warnf("window", "window %d is smaller than overlap %d", cfg.WindowSize, cfg.Overlap)
	}
	if err := aggregate.ValidStrategy(cfg.Strategy); err != nil {
		errf("strategy", "%v", err)
	}
	if _, err := record.DecoderFor(cfg.Numeric); err != nil {
		errf("numeric", "%v", err)
	}

	if _, err := pipeline.ParsePolicy(cfg.OnMalformed); err != nil {
		errf("on_malformed", "%v", err)
	} else if cfg.SkipLog != "" && cfg.OnMalformed != string(pipeline.PolicySkip) {
		warnf("skip_log", "ignored unless -on_malformed=skip")
	}

	if cfg.Out != "" && cfg.Out == cfg.Expect {
		errf("out", "must differ from -expect")
	}
	if cfg.Sink != "" {
		if cfg.SinkDSN == "" {
			errf("sink_dsn", "required when -sink=%s", cfg.Sink)
		}
		if strings.TrimSpace(cfg.SinkTable) == "" {
			errf("sink_table", "required when -sink=%s", cfg.Sink)
		}
	}

	switch cfg.MetricsBackend {
	case "none", "":
	case "pushgateway":
		if cfg.PushgatewayURL == "" {
			errf("pushgateway_url", "required for the pushgateway backend")
		}
	case "datadog":
		if cfg.DogstatsdAddr == "" {
			errf("dogstatsd_addr", "required for the datadog backend")
		}
	default:
		errf("metrics_backend", "unknown backend %q (want none, pushgateway or datadog)", cfg.MetricsBackend)
	}

	if !oneOf(cfg.Profile, "off", "cpu", "mem", "") {
		errf("profile", "unknown profile mode %q (want off, cpu or mem)", cfg.Profile)
	}
	if !oneOf(cfg.Trace, tracing.Modes...) && cfg.Trace != "" {
		errf("trace", "unknown trace mode %q (want one of %s)", cfg.Trace, strings.Join(tracing.Modes, ", "))
	} else if cfg.Trace == "stdout" && cfg.Out == "" {
		warnf("trace", "spans are interleaved with the summary on stdout; set -out or use -trace=stderr")
	}
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

func oneOf(v string, opts ...string) bool {
	for _, o := range opts {
		if v == o {
			return true
		}
	}
	return false
}
