// Package tracing holds the process-wide tracer and span helpers. Until
// SetTracer runs, StartSpan is a no-op so library code never checks for a
// configured tracer.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a span under the one already on the context.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name)
}

// GetTraceParent returns the W3C traceparent header value for the active
// span, or "" when there is none.
func GetTraceParent(ctx context.Context) string {
	return injectField(ctx, "traceparent")
}

// GetTraceState returns the W3C tracestate header value for the active span,
// or "" when there is none.
func GetTraceState(ctx context.Context) string {
	return injectField(ctx, "tracestate")
}

func injectField(ctx context.Context, field string) string {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ""
	}
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier.Get(field)
}
