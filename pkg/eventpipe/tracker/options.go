package tracker

import (
	"log/slog"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/observability"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/privacy"
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithProviders appends analytics destinations.
func WithProviders(providers ...Provider) Option {
	return func(t *Tracker) {
		for _, p := range providers {
			if p != nil {
				t.providers = append(t.providers, p)
			}
		}
	}
}

// WithValidator replaces the property validator.
// Default: a validator with the built-in rules that reports drops to the
// tracker's metrics.
func WithValidator(v *privacy.Validator) Option {
	return func(t *Tracker) {
		t.validator = v
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithDevelopment enables development logs: consent blocks, dropped
// properties and provider failures.
func WithDevelopment(enabled bool) Option {
	return func(t *Tracker) {
		t.development = enabled
	}
}

// WithMetrics sets the metrics recorder. Default: NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(t *Tracker) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithSpanManager sets the span manager. Default: NoopSpanManager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(t *Tracker) {
		if s != nil {
			t.spans = s
		}
	}
}
