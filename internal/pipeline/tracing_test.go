package pipeline

import (
	"context"
	"math/rand"
	"testing"

	"rowstats/internal/aggregate"
	"rowstats/internal/byteview"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func intAttr(t *testing.T, s sdktrace.ReadOnlySpan, key string) int64 {
	t.Helper()
	for _, kv := range s.Attributes() {
		if kv.Key == attribute.Key(key) {
			return kv.Value.AsInt64()
		}
	}
	t.Fatalf("span %s has no attribute %s", s.Name(), key)
	return 0
}

func TestRun_Spans(t *testing.T) {
	t.Parallel()

	in := genInput(rand.New(rand.NewSource(7)), 500, true)
	rec, tp := newRecorder()

	_, stats, err := Run(context.Background(), byteview.FromBytes([]byte(in)),
		Options{Workers: 3, WindowSize: 256, TracerProvider: tp}, aggregate.NewScalar)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var (
		scans   []sdktrace.ReadOnlySpan
		workers []sdktrace.ReadOnlySpan
	)
	for _, s := range rec.Ended() {
		switch s.Name() {
		case "rowstats.scan":
			scans = append(scans, s)
		case "rowstats.worker":
			workers = append(workers, s)
		}
	}
	if len(scans) != 1 {
		t.Fatalf("scan spans=%d want 1", len(scans))
	}
	scan := scans[0]
	if len(workers) != stats.Workers || stats.Workers != 3 {
		t.Fatalf("worker spans=%d stats.Workers=%d want 3", len(workers), stats.Workers)
	}

	if got := intAttr(t, scan, "scan.records"); got != stats.Records || got != 500 {
		t.Fatalf("scan.records=%d stats.Records=%d", got, stats.Records)
	}
	if got := intAttr(t, scan, "scan.windows"); got != stats.Windows {
		t.Fatalf("scan.windows=%d stats.Windows=%d", got, stats.Windows)
	}
	if got := intAttr(t, scan, "scan.bytes"); got != int64(len(in)) {
		t.Fatalf("scan.bytes=%d want %d", got, len(in))
	}

	var records, windows, scanned int64
	for _, w := range workers {
		if w.Parent().SpanID() != scan.SpanContext().SpanID() {
			t.Fatalf("worker span parent=%s want scan %s", w.Parent().SpanID(), scan.SpanContext().SpanID())
		}
		records += intAttr(t, w, "worker.records")
		windows += intAttr(t, w, "worker.windows")
		scanned += intAttr(t, w, "worker.bytes")
	}
	if records != stats.Records || windows != stats.Windows {
		t.Fatalf("worker sums records=%d windows=%d, stats=%+v", records, windows, stats)
	}
	// Trimmed spans partition the input.
	if scanned != int64(len(in)) {
		t.Fatalf("worker bytes=%d want %d", scanned, len(in))
	}
}

func TestRun_SpanStatusOnError(t *testing.T) {
	t.Parallel()

	rec, tp := newRecorder()
	in := byteview.FromBytes([]byte("a;1.0\nb;x\n"))
	if _, _, err := Run(context.Background(), in, Options{Workers: 1, TracerProvider: tp}, aggregate.NewScalar); err == nil {
		t.Fatalf("expected error")
	}

	for _, s := range rec.Ended() {
		if s.Name() != "rowstats.scan" {
			continue
		}
		if s.Status().Code != codes.Error {
			t.Fatalf("scan status=%v want Error", s.Status())
		}
		return
	}
	t.Fatalf("no scan span recorded")
}
