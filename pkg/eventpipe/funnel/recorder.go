package funnel

import (
	"context"
	"fmt"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// StepTracker records funnel steps. *tracker.Tracker implements it.
type StepTracker interface {
	TrackFunnelStep(ctx context.Context, funnel, step string, stepNumber int, props value.Properties)
}

// Recorder records steps of one funnel.
type Recorder struct {
	tracker StepTracker
	funnel  Funnel
}

// NewRecorder creates a recorder for f.
func NewRecorder(t StepTracker, f Funnel) *Recorder {
	return &Recorder{tracker: t, funnel: f}
}

// For creates a recorder for a funnel of the Default catalog.
func For(t StepTracker, name string) (*Recorder, error) {
	f, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("funnel %q: %w", name, ErrUnknownFunnel)
	}
	return NewRecorder(t, f), nil
}

// Funnel returns the recorded funnel.
func (r *Recorder) Funnel() Funnel { return r.funnel }

// Step records the named step. The step's default properties are sent
// unless props overrides them.
func (r *Recorder) Step(ctx context.Context, stepName string, props value.Properties) error {
	s, ok := r.funnel.Step(stepName)
	if !ok {
		return fmt.Errorf("%s/%s: %w", r.funnel.Name, stepName, ErrUnknownStep)
	}
	r.record(ctx, s, props)
	return nil
}

// StepNumber records step n.
func (r *Recorder) StepNumber(ctx context.Context, n int, props value.Properties) error {
	name, ok := r.funnel.StepName(n)
	if !ok {
		return fmt.Errorf("%s/#%d: %w", r.funnel.Name, n, ErrUnknownStep)
	}
	return r.Step(ctx, name, props)
}

func (r *Recorder) record(ctx context.Context, s Step, props value.Properties) {
	merged := props
	if len(s.Defaults) > 0 {
		merged = make(value.Properties, len(s.Defaults)+len(props))
		for k, v := range s.Defaults {
			merged[k] = v
		}
		for k, v := range props {
			merged[k] = v
		}
	}
	r.tracker.TrackFunnelStep(ctx, r.funnel.Name, s.Name, s.Number, merged)
}
