// Package observability provides structured logging, metrics and tracing
// for the event pipeline.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Property values are never logged; only keys, event names and reasons.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds queued-event context to a logger.
func EnrichLogger(logger *slog.Logger, eventID, eventName string, retryCount int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event_id", eventID),
		slog.String("event_name", eventName),
		slog.Int("retry_count", retryCount),
	)
}

// LogConsentBlocked logs an event discarded for missing consent.
func LogConsentBlocked(logger *slog.Logger, eventName string) {
	if logger == nil {
		return
	}
	logger.Debug("event discarded without consent",
		slog.String("event_name", eventName),
	)
}

// LogNoProviders logs an event dropped because no provider is registered.
func LogNoProviders(logger *slog.Logger, eventName string) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped without providers",
		slog.String("event_name", eventName),
	)
}

// LogPropertyDropped logs a property removed by the validator.
func LogPropertyDropped(logger *slog.Logger, key, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("property dropped",
		slog.String("key", key),
		slog.String("reason", reason),
	)
}

// LogProviderError logs a failed provider call.
func LogProviderError(logger *slog.Logger, provider, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("provider call failed",
		slog.String("provider", provider),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogEventQueued logs an event handed to the retry queue.
func LogEventQueued(logger *slog.Logger, eventID, eventName string, nextRetryAt time.Time) {
	if logger == nil {
		return
	}
	logger.Info("event queued for retry",
		slog.String("event_id", eventID),
		slog.String("event_name", eventName),
		slog.Time("next_retry_at", nextRetryAt),
	)
}

// LogDeliveryFailed logs a failed retry delivery.
func LogDeliveryFailed(logger *slog.Logger, eventID string, retryCount int, category string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("retry delivery failed",
		slog.String("event_id", eventID),
		slog.Int("retry_count", retryCount),
		slog.String("category", category),
		slog.String("error", err.Error()),
	)
}

// LogRetryExhausted logs an event dropped after its last retry.
func LogRetryExhausted(logger *slog.Logger, eventID, eventName string, retries int) {
	if logger == nil {
		return
	}
	logger.Warn("event dropped after max retries",
		slog.String("event_id", eventID),
		slog.String("event_name", eventName),
		slog.Int("retries", retries),
	)
}

// LogQueueLoaded logs the result of loading the persisted queue.
func LogQueueLoaded(logger *slog.Logger, loaded, purged int) {
	if logger == nil {
		return
	}
	logger.Debug("retry queue loaded",
		slog.Int("loaded", loaded),
		slog.Int("purged_stale", purged),
	)
}

// LogPersistError logs a failed queue persist (non-fatal).
func LogPersistError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("queue persist failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
