package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/observability"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/privacy"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// Track outcomes reported to metrics.
const (
	OutcomeDispatched     = "dispatched"
	OutcomeQueued         = "queued"
	OutcomeConsentBlocked = "consent_blocked"
	OutcomeDropped        = "dropped"
)

// Tracker dispatches sanitized events to providers. It is safe for
// concurrent use.
type Tracker struct {
	consent   ConsentGate
	queue     Enqueuer
	providers []Provider
	validator *privacy.Validator

	logger      *slog.Logger
	development bool
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager

	mu     sync.RWMutex
	userID string
	traits value.Properties
}

// New creates a Tracker.
//
// A nil consent gate denies everything. A nil queue means failed events are
// dropped instead of retried.
func New(consent ConsentGate, queue Enqueuer, opts ...Option) *Tracker {
	t := &Tracker{
		consent: consent,
		queue:   queue,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.validator == nil {
		t.validator = privacy.New(
			privacy.WithLogger(t.logger),
			privacy.WithDevelopment(t.development),
			privacy.WithOnDrop(func(_, reason string) {
				t.metrics.RecordValidationDrop(context.Background(), reason)
			}),
		)
	}
	return t
}

// Providers returns the registered providers.
func (t *Tracker) Providers() []Provider {
	out := make([]Provider, len(t.providers))
	copy(out, t.providers)
	return out
}

func (t *Tracker) allowed() bool {
	return t.consent != nil && t.consent.AnalyticsAllowed()
}

// TrackEvent records an event.
//
// Without consent the event is discarded and never queued. Otherwise the
// properties are sanitized once and the same sanitized map is sent to every
// provider. If any provider fails, the event is queued once, addressed to the
// failed providers only. With no providers the event is dropped.
func (t *Tracker) TrackEvent(ctx context.Context, name string, props value.Properties) {
	ctx, span := t.spans.StartTrackSpan(ctx, name)

	if !t.allowed() {
		if t.development {
			observability.LogConsentBlocked(t.logger, name)
		}
		t.metrics.RecordTrack(ctx, name, OutcomeConsentBlocked)
		t.spans.EndSpanWithError(span, nil)
		return
	}

	if len(t.providers) == 0 {
		if t.development {
			observability.LogNoProviders(t.logger, name)
		}
		t.metrics.RecordTrack(ctx, name, OutcomeDropped)
		t.spans.EndSpanWithError(span, nil)
		return
	}

	clean := t.validator.ValidateEventProperties(props)
	failed := t.dispatch(ctx, "track", func(ctx context.Context, p Provider) error {
		return p.Track(ctx, name, clean)
	})

	outcome := OutcomeDispatched
	var err error
	if len(failed) > 0 {
		err = fmt.Errorf("%d of %d providers failed: %s", len(failed), len(t.providers), strings.Join(failed, ", "))
		if t.queue != nil {
			ev := t.queue.Add(ctx, name, clean, failed...)
			t.spans.AddSpanEvent(ctx, "queued", attribute.String("event.id", ev.ID))
			outcome = OutcomeQueued
		} else {
			outcome = OutcomeDropped
		}
	}
	t.metrics.RecordTrack(ctx, name, outcome)
	t.spans.EndSpanWithError(span, err)
}

// IdentifyUser associates the current user with userID and sanitized traits.
//
// userID is added to the traits as "user_id" and validated with them; if it
// is rejected as PII, identification is skipped. Identify calls are never
// retried.
func (t *Tracker) IdentifyUser(ctx context.Context, userID string, props value.Properties) {
	if !t.allowed() {
		if t.development {
			observability.LogConsentBlocked(t.logger, "identify")
		}
		return
	}

	traits := props.Clone()
	if traits == nil {
		traits = value.Properties{}
	}
	traits["user_id"] = value.String(userID)

	clean := t.validator.ValidateUserProperties(traits)
	if _, ok := clean["user_id"]; !ok || userID == "" {
		if t.development {
			observability.LogPropertyDropped(t.logger, "user_id", "identify skipped")
		}
		return
	}

	t.mu.Lock()
	t.userID = userID
	t.traits = clean
	t.mu.Unlock()

	t.dispatch(ctx, "identify", func(ctx context.Context, p Provider) error {
		return p.Identify(ctx, userID, clean)
	})
}

// ResetUserIdentity clears the local identity and resets every provider.
// It runs regardless of consent.
func (t *Tracker) ResetUserIdentity(ctx context.Context) {
	t.mu.Lock()
	t.userID = ""
	t.traits = nil
	t.mu.Unlock()

	t.dispatch(ctx, "reset", func(ctx context.Context, p Provider) error {
		return p.Reset(ctx)
	})
}

// UserID returns the identified user, or "".
func (t *Tracker) UserID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.userID
}

// Traits returns a copy of the sanitized traits of the identified user.
func (t *Tracker) Traits() value.Properties {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.traits.Clone()
}

// TrackPageView records a page_view event for path.
func (t *Tracker) TrackPageView(ctx context.Context, path string, props value.Properties) {
	merged := merge(props, value.Properties{
		"path": value.String(path),
	})
	t.TrackEvent(ctx, EventPageView, merged)
}

// TrackFunnelStep records a funnel_step event.
func (t *Tracker) TrackFunnelStep(ctx context.Context, funnel, step string, stepNumber int, props value.Properties) {
	merged := merge(props, value.Properties{
		"funnel_name": value.String(funnel),
		"step_name":   value.String(step),
		"step_number": value.Int(int64(stepNumber)),
	})
	t.TrackEvent(ctx, EventFunnelStep, merged)
}

// dispatch calls fn for each provider and returns the names of those that
// failed. A panicking provider counts as failed.
func (t *Tracker) dispatch(ctx context.Context, op string, fn func(context.Context, Provider) error) []string {
	var failed []string
	for _, p := range t.providers {
		if err := t.call(ctx, p, fn); err != nil {
			failed = append(failed, p.Name())
			if t.development {
				observability.LogProviderError(t.logger, p.Name(), op, err)
			}
		}
	}
	return failed
}

func (t *Tracker) call(ctx context.Context, p Provider, fn func(context.Context, Provider) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return fn(ctx, p)
}

// merge returns base overlaid with extra. Neither input is modified.
func merge(base, extra value.Properties) value.Properties {
	out := make(value.Properties, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// joinFields joins field names the way list-valued properties are sent.
func joinFields(fields []string) string {
	return strings.Join(fields, ",")
}
