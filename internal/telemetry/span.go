package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span started here
const TracerName = "github.com/steveyegge/dupsweep"

// Span wraps an OTel span for managed lifecycle
type Span struct {
	ctx  context.Context
	span trace.Span
}

// StartSpan creates a child span of ctx. End must be called.
//
//	sp := telemetry.StartSpan(ctx, "workflow.fetch")
//	defer sp.End()
//	ctx = sp.Context()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) *Span {
	ctx, span := otel.Tracer(TracerName).Start(ctx, name, opts...)
	return &Span{ctx: ctx, span: span}
}

// Context returns the context carrying the span
func (s *Span) Context() context.Context {
	return s.ctx
}

// End completes the span
func (s *Span) End() {
	if s.span != nil {
		s.span.End()
	}
}

// RecordError marks the span failed
func (s *Span) RecordError(err error) {
	if s.span != nil && err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
}

// Span returns the underlying OTel span
func (s *Span) Span() trace.Span {
	return s.span
}
