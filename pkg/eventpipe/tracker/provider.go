package tracker

import (
	"context"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// ConsentGate reports whether the user currently allows analytics.
// It is consulted on every call and never mutated by the tracker.
type ConsentGate interface {
	AnalyticsAllowed() bool
}

// ConsentFunc adapts a function to ConsentGate.
type ConsentFunc func() bool

// AnalyticsAllowed implements ConsentGate.
func (f ConsentFunc) AnalyticsAllowed() bool { return f() }

// Provider is an analytics destination.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name identifies the provider in logs and in queued retry targets.
	// Names must be unique within a tracker.
	Name() string

	// Track records an event with sanitized properties.
	Track(ctx context.Context, event string, props value.Properties) error

	// Identify associates subsequent events with userID.
	Identify(ctx context.Context, userID string, traits value.Properties) error

	// Reset forgets the current identity.
	Reset(ctx context.Context) error
}

// Enqueuer accepts events for later re-delivery. *retry.Queue implements it.
type Enqueuer interface {
	Add(ctx context.Context, name string, props value.Properties, targets ...string) retry.QueuedEvent
}
