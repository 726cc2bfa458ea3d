package provider

import (
	"context"
	"time"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// EventIdentify is the event name under which identify calls are posted.
const EventIdentify = "identify"

// HTTPProvider sends events to the ingestion endpoint.
type HTTPProvider struct {
	deliverer *retry.HTTPDeliverer
	now       func() time.Time
}

// NewHTTPProvider creates a provider that posts through d.
func NewHTTPProvider(d *retry.HTTPDeliverer) *HTTPProvider {
	return &HTTPProvider{deliverer: d, now: time.Now}
}

// Name implements tracker.Provider.
func (p *HTTPProvider) Name() string { return "http" }

// Track implements tracker.Provider.
func (p *HTTPProvider) Track(ctx context.Context, event string, props value.Properties) error {
	if err := p.deliverer.Send(ctx, retry.NewPayload(event, props, p.now())); err != nil {
		return &errors.ProviderError{Provider: p.Name(), Operation: "track", Err: err}
	}
	return nil
}

// Deliver implements retry.Deliverer for queued events addressed to this
// provider. The event's original timestamp is sent.
func (p *HTTPProvider) Deliver(ctx context.Context, ev retry.QueuedEvent) error {
	if err := p.deliverer.Deliver(ctx, ev); err != nil {
		return &errors.ProviderError{Provider: p.Name(), Operation: "redeliver", Err: err}
	}
	return nil
}

// Identify implements tracker.Provider. Traits are posted as an identify
// event; userID is carried as the user_id property.
func (p *HTTPProvider) Identify(ctx context.Context, userID string, traits value.Properties) error {
	props := traits.Clone()
	if props == nil {
		props = value.Properties{}
	}
	props["user_id"] = value.String(userID)

	if err := p.deliverer.Send(ctx, retry.NewPayload(EventIdentify, props, p.now())); err != nil {
		return &errors.ProviderError{Provider: p.Name(), Operation: "identify", Err: err}
	}
	return nil
}

// Reset implements tracker.Provider. The endpoint keeps no session state.
func (p *HTTPProvider) Reset(context.Context) error { return nil }
