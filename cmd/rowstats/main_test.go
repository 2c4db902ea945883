package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rowstats/internal/config"
	"rowstats/internal/record"
	"rowstats/internal/verify"

	_ "modernc.org/sqlite"
)

const sample = "Hamburg;12.0\nBulawayo;8.9\nPalembang;38.8\nHamburg;15.2\nBerlin;-3.5\n"

const sampleOut = "{Berlin=-3.5/-3.5/-3.5, Bulawayo=8.9/8.9/8.9, Hamburg=12.0/13.6/15.2, Palembang=38.8/38.8/38.8}"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// loadConfig builds a Config from flags alone, ignoring the real environment.
func loadConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := config.LoadFromArgs(fs, func(string) string { return "" }, args)
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	if issues := config.Validate(cfg); config.HasErrors(issues) {
		t.Fatalf("invalid config: %v", issues)
	}
	return cfg
}

func TestRun_Stdout(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "m.txt", sample)
	for _, args := range [][]string{
		{"-input", in},
		{"-input", in, "-strategy", "batched", "-workers", "3", "-window", "16", "-overlap", "16"},
		{"-input", in, "-view", "readat", "-numeric", "float"},
		{"-input", in, "-view", "heap"},
	} {
		var stdout bytes.Buffer
		if err := run(context.Background(), loadConfig(t, args...), &stdout); err != nil {
			t.Fatalf("run(%v): %v", args, err)
		}
		if got := stdout.String(); got != sampleOut+"\n" {
			t.Fatalf("run(%v) output = %q\nwant %q", args, got, sampleOut)
		}
	}
}

func TestRun_OutFileAndExpect(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "m.txt", sample)
	expect := writeFile(t, "expected.txt", sampleOut+"\n")
	out := filepath.Join(t.TempDir(), "out.txt")

	var stdout bytes.Buffer
	if err := run(context.Background(), loadConfig(t, "-input", in, "-out", out, "-expect", expect), &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout should be empty with -out, got %q", stdout.String())
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read out: %v", err)
	}
	if string(b) != sampleOut+"\n" {
		t.Fatalf("out file = %q", b)
	}
}

func TestRun_ExpectMismatch(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "m.txt", sample)
	expect := writeFile(t, "expected.txt", "{Berlin=0.0/0.0/0.0}\n")

	err := run(context.Background(), loadConfig(t, "-input", in, "-expect", expect), &bytes.Buffer{})
	if !errors.Is(err, verify.ErrMismatch) {
		t.Fatalf("err=%v want verify.ErrMismatch", err)
	}
}

func TestRun_AbortOnMalformed(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "m.txt", "a;1.0\nbroken\n")
	err := run(context.Background(), loadConfig(t, "-input", in), &bytes.Buffer{})
	var rerr *record.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("err=%v want *record.Error", err)
	}
	if rerr.Offset != 6 || rerr.Reason != record.ReasonMissingSeparator {
		t.Fatalf("record error = %+v", rerr)
	}
}

func TestRun_SkipWithLog(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "m.txt", "a;1.0\nbroken\nb;x\na;3.0\n")
	skipLog := filepath.Join(t.TempDir(), "skips", "skipped.csv")

	var stdout bytes.Buffer
	if err := run(context.Background(), loadConfig(t, "-input", in, "-on_malformed", "skip", "-skip_log", skipLog), &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "{a=1.0/2.0/3.0}" {
		t.Fatalf("output = %q", got)
	}

	f, err := os.Open(skipLog)
	if err != nil {
		t.Fatalf("open skip log: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read skip log: %v", err)
	}
	want := [][]string{
		{"reason", "offset", "raw"},
		{"missing_separator", "6", "broken"},
		{"bad_number", "13", "b;x"},
	}
	if len(rows) != len(want) {
		t.Fatalf("skip rows = %v", rows)
	}
	for i := range want {
		if strings.Join(rows[i], ",") != strings.Join(want[i], ",") {
			t.Fatalf("row %d = %v want %v", i, rows[i], want[i])
		}
	}
}

func TestRun_SQLiteSink(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "m.txt", sample)
	dsn := filepath.Join(t.TempDir(), "rowstats.db")

	if err := run(context.Background(), loadConfig(t, "-input", in, "-sink", "sqlite", "-sink_dsn", dsn), &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var (
		mean    float64
		samples int64
		count   int
	)
	if err := db.QueryRow(`SELECT COUNT(*) FROM "station_summary"`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if err := db.QueryRow(`SELECT "mean_value", "sample_count" FROM "station_summary" WHERE "station" = ?`, "Hamburg").Scan(&mean, &samples); err != nil {
		t.Fatalf("select: %v", err)
	}
	if count != 4 || mean != 13.6 || samples != 2 {
		t.Fatalf("count=%d mean=%v samples=%d", count, mean, samples)
	}
}

func TestRun_MissingInput(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), loadConfig(t, "-input", filepath.Join(t.TempDir(), "nope.txt")), &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for missing input")
	}
}

func TestStartProfile_Off(t *testing.T) {
	t.Parallel()
	startProfile("off")()
}
