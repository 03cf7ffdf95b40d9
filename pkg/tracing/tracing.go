// Package tracing builds the OpenTelemetry tracer provider of an IMM process.
package tracing

import (
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted by NewProvider.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "imm"

// ErrUnknownExporter is returned for an exporter name outside the list above.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// NewProvider returns a batching SDK provider writing spans as JSON to w,
// tagged with the rank of this process. It returns a nil provider and no
// error for ExporterNone or an empty name. Callers must Shutdown the
// provider to flush pending spans.
func NewProvider(exporter string, w io.Writer, rank int) (*sdktrace.TracerProvider, error) {
	switch exporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		res := resource.NewSchemaless(
			attribute.String("service.name", ServiceName),
			attribute.Int("imm.rank", rank),
		)
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, exporter)
	}
}
