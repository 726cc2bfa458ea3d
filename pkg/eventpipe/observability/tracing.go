package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("eventpipe")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartTrackSpan starts a span covering one TrackEvent call.
	StartTrackSpan(ctx context.Context, eventName string) (context.Context, trace.Span)

	// StartDeliverySpan starts a span for one retry delivery attempt.
	StartDeliverySpan(ctx context.Context, eventID, eventName string, retryCount int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartTrackSpan starts a span for a TrackEvent call.
func (m *otelSpanManager) StartTrackSpan(ctx context.Context, eventName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventpipe.track",
		trace.WithAttributes(
			attribute.String("event.name", eventName),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartDeliverySpan starts a span for a retry delivery.
func (m *otelSpanManager) StartDeliverySpan(ctx context.Context, eventID, eventName string, retryCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventpipe.deliver",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("event.name", eventName),
			attribute.Int("event.retry_count", retryCount),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
