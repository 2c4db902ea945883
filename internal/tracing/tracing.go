// Package tracing installs the global OpenTelemetry tracer provider used by
// the pipeline spans.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Modes lists the values accepted by Setup.
var Modes = []string{"off", "stdout", "stderr"}

// Setup installs a provider for mode and returns its shutdown func, which
// flushes pending spans. "stdout" and "stderr" both mean the stdout exporter
// writing JSON to w; "off" keeps the global no-op provider.
func Setup(mode, service string, w io.Writer) (func(context.Context) error, error) {
	switch mode {
	case "", "off":
		return func(context.Context) error { return nil }, nil
	case "stdout", "stderr":
	default:
		return nil, fmt.Errorf("tracing: unknown mode %q (want off, stdout or stderr)", mode)
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("tracing: stdout exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
