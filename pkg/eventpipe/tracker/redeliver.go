package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
)

// ErrUnknownProvider is returned for a queued target no provider answers to,
// for example after a provider was removed between restarts.
var ErrUnknownProvider = errors.New("unknown provider")

// Redeliverer is a retry.Deliverer that sends queued events back to the
// providers named in their Targets. Providers that implement
// retry.Deliverer receive the queued event itself, which keeps the original
// timestamp; others get a fresh Track call.
type Redeliverer struct {
	fallback  retry.Deliverer
	providers map[string]Provider
}

// NewRedeliverer routes targeted events to providers by Name. Events with no
// Targets go to fallback.
func NewRedeliverer(fallback retry.Deliverer, providers ...Provider) *Redeliverer {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Redeliverer{fallback: fallback, providers: byName}
}

// Deliver implements retry.Deliverer. When only some targets accept the
// event the error is a *retry.PartialDeliveryError naming them.
func (r *Redeliverer) Deliver(ctx context.Context, ev retry.QueuedEvent) error {
	if len(ev.Targets) == 0 {
		if r.fallback == nil {
			return fmt.Errorf("redeliver %s: no targets and no fallback: %w", ev.ID, ErrUnknownProvider)
		}
		return r.fallback.Deliver(ctx, ev)
	}

	var delivered []string
	var errs []error
	for _, name := range ev.Targets {
		if err := r.deliverTo(ctx, name, ev); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered = append(delivered, name)
	}

	switch {
	case len(errs) == 0:
		return nil
	case len(delivered) == 0:
		return errors.Join(errs...)
	default:
		return &retry.PartialDeliveryError{Delivered: delivered, Err: errors.Join(errs...)}
	}
}

func (r *Redeliverer) deliverTo(ctx context.Context, name string, ev retry.QueuedEvent) (err error) {
	p, ok := r.providers[name]
	if !ok {
		return fmt.Errorf("redeliver to %q: %w", name, ErrUnknownProvider)
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("provider %s panic: %v", name, rec)
		}
	}()
	if d, ok := p.(retry.Deliverer); ok {
		return d.Deliver(ctx, ev)
	}
	return p.Track(ctx, ev.EventName, ev.Properties)
}
