package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func noEnv(string) string { return "" }

// TestLoadFromArgs_EnvDefaultsAndFlags validates the precedence model:
// environment seeds defaults, explicit flags override env.
func TestLoadFromArgs_EnvDefaultsAndFlags(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"ROWSTATS_INPUT":        "/data/m.txt",
		"ROWSTATS_WORKERS":      "12",
		"ROWSTATS_STRATEGY":     "batched",
		"ROWSTATS_VERBOSE":      "yes",
		"ROWSTATS_WINDOW":       "not-a-number",
		"METRICS_BACKEND":       "datadog",
		"ROWSTATS_ON_MALFORMED": "skip",
	}
	getenv := func(k string) string { return env[k] }

	cfg, err := LoadFromArgs(newFlagSet(), getenv, []string{"-workers=3", "-numeric=float"})
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	if cfg.Input != "/data/m.txt" || cfg.Strategy != "batched" || cfg.MetricsBackend != "datadog" || cfg.OnMalformed != "skip" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !cfg.Verbose {
		t.Fatalf("bool env not applied")
	}
	if cfg.Workers != 3 || cfg.Numeric != "float" {
		t.Fatalf("flag override not applied: workers=%d numeric=%s", cfg.Workers, cfg.Numeric)
	}
	if cfg.WindowSize != 32<<20 {
		t.Fatalf("unparsable env should fall back to default, got %d", cfg.WindowSize)
	}
}

func TestLoadFromArgs_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromArgs(newFlagSet(), noEnv, nil)
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	want := Config{
		Input:          "measurements.txt",
		View:           "mmap",
		Workers:        runtime.NumCPU(),
		WindowSize:     32 << 20,
		Overlap:        106,
		MaxKey:         100,
		Strategy:       "scalar",
		Numeric:        "fixed",
		OnMalformed:    "abort",
		SinkTable:      "station_summary",
		MetricsBackend: "none",
		PushgatewayURL: "http://localhost:9091",
		DogstatsdAddr:  "127.0.0.1:8125",
		Job:            "rowstats",
		Profile:        "off",
		Trace:          "off",
	}
	if *cfg != want {
		t.Fatalf("defaults:\n got %+v\nwant %+v", *cfg, want)
	}
	if issues := Validate(cfg); len(issues) != 0 {
		t.Fatalf("defaults should validate cleanly: %v", issues)
	}
}

func TestLoadFromArgs_BadFlag(t *testing.T) {
	t.Parallel()
	if _, err := LoadFromArgs(newFlagSet(), noEnv, []string{"-no_such_flag"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		cfg, err := LoadFromArgs(newFlagSet(), noEnv, nil)
		if err != nil {
			t.Fatalf("LoadFromArgs: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(c *Config)
		wantPath string
		wantSev  IssueSeverity
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers", SeverityError},
		{"bad strategy", func(c *Config) { c.Strategy = "simd" }, "strategy", SeverityError},
		{"bad numeric", func(c *Config) { c.Numeric = "decimal" }, "numeric", SeverityError},
		{"bad view", func(c *Config) { c.View = "pipe" }, "view", SeverityError},
		{"bad policy", func(c *Config) { c.OnMalformed = "ignore" }, "on_malformed", SeverityError},
		{"small overlap", func(c *Config) { c.Overlap = 50 }, "overlap", SeverityWarning},
		{"overlap one short of longest record", func(c *Config) { c.Overlap = 105 }, "overlap", SeverityWarning},
		{"skip log without skip", func(c *Config) { c.SkipLog = "s.csv" }, "skip_log", SeverityWarning},
		{"sink without dsn", func(c *Config) { c.Sink = "sqlite" }, "sink_dsn", SeverityError},
		{"unknown metrics", func(c *Config) { c.MetricsBackend = "graphite" }, "metrics_backend", SeverityError},
		{"bad profile", func(c *Config) { c.Profile = "trace" }, "profile", SeverityError},
		{"bad trace", func(c *Config) { c.Trace = "jaeger" }, "trace", SeverityError},
		{"trace on stdout", func(c *Config) { c.Trace = "stdout" }, "trace", SeverityWarning},
		{"out equals expect", func(c *Config) { c.Out, c.Expect = "a.txt", "a.txt" }, "out", SeverityError},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(cfg)
			issues := Validate(cfg)
			if len(issues) != 1 {
				t.Fatalf("issues=%v want exactly one", issues)
			}
			if issues[0].Path != tc.wantPath || issues[0].Severity != tc.wantSev {
				t.Fatalf("issue=%+v want %s/%s", issues[0], tc.wantSev, tc.wantPath)
			}
			if HasErrors(issues) != (tc.wantSev == SeverityError) {
				t.Fatalf("HasErrors mismatch for %+v", issues[0])
			}
		})
	}
}

// TestLoad_DotEnv runs Load from a directory holding a .env file. It changes
// the working directory and the process flag set, so it is not parallel.
func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ROWSTATS_MAX_KEY=42\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Cleanup(func() { _ = os.Unsetenv("ROWSTATS_MAX_KEY") })

	origCmd, origArgs := flag.CommandLine, os.Args
	flag.CommandLine = newFlagSet()
	os.Args = []string{"rowstats"}
	t.Cleanup(func() { flag.CommandLine, os.Args = origCmd, origArgs })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxKey != 42 {
		t.Fatalf("MaxKey=%d want 42 from .env", cfg.MaxKey)
	}
}
