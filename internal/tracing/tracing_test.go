package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

// TestSetup_Stdout replaces the global provider, so it does not run in
// parallel.
func TestSetup_Stdout(t *testing.T) {
	orig := otel.GetTracerProvider()
	defer otel.SetTracerProvider(orig)

	var buf bytes.Buffer
	shutdown, err := Setup("stdout", "rowstats-test", &buf)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "rowstats.scan")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"Name":"rowstats.scan"`) || !strings.Contains(out, "rowstats-test") {
		t.Fatalf("exported spans missing name or service: %s", out)
	}
}

func TestSetup_Off(t *testing.T) {
	orig := otel.GetTracerProvider()

	shutdown, err := Setup("off", "rowstats", nil)
	if err != nil {
		t.Fatalf("Setup(off): %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != orig {
		t.Fatalf("Setup(off) replaced the global provider")
	}
}

func TestSetup_Unknown(t *testing.T) {
	t.Parallel()

	if _, err := Setup("jaeger", "rowstats", nil); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
