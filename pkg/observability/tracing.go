package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer so call sites deal with a small,
// docring-shaped surface instead of the full otel API.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer builds a Tracer backed by a new in-process SDK provider with no
// exporter, and installs that provider as the global one, replacing any
// provider set before the call. Spans are recorded but never exported.
func NewTracer(serviceName string) *Tracer {
	provider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(provider)
	return &Tracer{tracer: provider.Tracer(serviceName)}
}

// Span is an open span; call End when the traced operation completes.
type Span struct {
	span trace.Span
}

// Start begins a span named name with the given string attributes.
func (t *Tracer) Start(ctx context.Context, name string, attrs map[string]string) (context.Context, *Span) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(kvs...))
	return ctx, &Span{span: span}
}

// SetError marks the span as failed.
func (s *Span) SetError(err error) {
	if err == nil {
		return
	}
	s.span.SetStatus(codes.Error, err.Error())
}

// End closes the span.
func (s *Span) End() { s.span.End() }
