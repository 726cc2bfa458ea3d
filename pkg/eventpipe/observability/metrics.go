package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTrack records the outcome of a TrackEvent call
	// ("dispatched", "queued" or "consent_blocked").
	RecordTrack(ctx context.Context, eventName, outcome string)

	// RecordValidationDrop records a property removed by the validator.
	RecordValidationDrop(ctx context.Context, reason string)

	// RecordDelivery records one retry delivery attempt.
	RecordDelivery(ctx context.Context, eventName string, duration time.Duration, err error)

	// RecordRetryExhausted records an event dropped after its last retry.
	RecordRetryExhausted(ctx context.Context, eventName string)

	// RecordQueueSize records the current retry queue length.
	RecordQueueSize(ctx context.Context, size int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	eventsTracked    metric.Int64Counter
	validationDrops  metric.Int64Counter
	deliveryAttempts metric.Int64Counter
	deliveryLatency  metric.Float64Histogram
	retryExhausted   metric.Int64Counter
	queueSize        metric.Int64Gauge
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventpipe")

	eventsTracked, err := meter.Int64Counter("eventpipe.events.tracked",
		metric.WithDescription("Number of TrackEvent calls by outcome"),
	)
	if err != nil {
		return nil, err
	}

	validationDrops, err := meter.Int64Counter("eventpipe.validation.drops",
		metric.WithDescription("Number of properties removed by the validator"),
	)
	if err != nil {
		return nil, err
	}

	deliveryAttempts, err := meter.Int64Counter("eventpipe.delivery.attempts",
		metric.WithDescription("Number of retry delivery attempts"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram("eventpipe.delivery.latency_ms",
		metric.WithDescription("Retry delivery latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retryExhausted, err := meter.Int64Counter("eventpipe.retry.exhausted",
		metric.WithDescription("Number of events dropped after max retries"),
	)
	if err != nil {
		return nil, err
	}

	queueSize, err := meter.Int64Gauge("eventpipe.queue.size",
		metric.WithDescription("Current retry queue length"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		eventsTracked:    eventsTracked,
		validationDrops:  validationDrops,
		deliveryAttempts: deliveryAttempts,
		deliveryLatency:  deliveryLatency,
		retryExhausted:   retryExhausted,
		queueSize:        queueSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordTrack records a TrackEvent outcome.
func (m *otelMetrics) RecordTrack(ctx context.Context, eventName, outcome string) {
	m.eventsTracked.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_name", eventName),
		attribute.String("outcome", outcome),
	))
}

// RecordValidationDrop records a dropped property.
func (m *otelMetrics) RecordValidationDrop(ctx context.Context, reason string) {
	m.validationDrops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordDelivery records a delivery attempt.
func (m *otelMetrics) RecordDelivery(ctx context.Context, eventName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("event_name", eventName),
		attribute.Bool("success", err == nil),
	}
	m.deliveryAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.deliveryLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordRetryExhausted records a dropped event.
func (m *otelMetrics) RecordRetryExhausted(ctx context.Context, eventName string) {
	m.retryExhausted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_name", eventName),
	))
}

// RecordQueueSize records the queue length.
func (m *otelMetrics) RecordQueueSize(ctx context.Context, size int) {
	m.queueSize.Record(ctx, int64(size))
}
