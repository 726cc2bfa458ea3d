// Package funnel defines conversion funnels and records progress through
// them as funnel_step events.
//
// A Funnel is an ordered list of named steps numbered from 1. The built-in
// funnels cover signup, onboarding, applications, matching and premium
// upgrades; applications may register their own in a Catalog.
package funnel

import (
	"errors"
	"math"
	"slices"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// ErrUnknownStep is returned when a step is not part of a funnel.
var ErrUnknownStep = errors.New("unknown funnel step")

// ErrUnknownFunnel is returned when a funnel name is not registered.
var ErrUnknownFunnel = errors.New("unknown funnel")

// ErrInvalidFunnel is returned when registering a malformed funnel.
var ErrInvalidFunnel = errors.New("invalid funnel")

// Step is one stage of a funnel.
type Step struct {
	Number      int
	Name        string
	Description string

	// Defaults are sent with the step; caller properties override them.
	Defaults value.Properties
}

// Funnel is an ordered sequence of steps.
type Funnel struct {
	Name        string
	DisplayName string
	Description string
	Steps       []Step
}

// StepCount returns the number of steps.
func (f Funnel) StepCount() int { return len(f.Steps) }

// StepName returns the name of step number n.
func (f Funnel) StepName(n int) (string, bool) {
	for _, s := range f.Steps {
		if s.Number == n {
			return s.Name, true
		}
	}
	return "", false
}

// Step returns the step named name.
func (f Funnel) Step(name string) (Step, bool) {
	for _, s := range f.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// Progress returns how far through the funnel currentStep is, as a rounded
// percentage. An empty funnel reports 0.
func (f Funnel) Progress(currentStep int) int {
	total := f.StepCount()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(currentStep) / float64(total) * 100))
}

// Completed reports whether completedSteps contains the final step.
func (f Funnel) Completed(completedSteps []int) bool {
	total := f.StepCount()
	return total > 0 && slices.Contains(completedSteps, total)
}

// Validate checks that steps are numbered 1..n with unique, non-empty names.
func (f Funnel) Validate() error {
	if f.Name == "" {
		return ErrInvalidFunnel
	}
	seen := make(map[string]bool, len(f.Steps))
	for i, s := range f.Steps {
		if s.Number != i+1 || s.Name == "" || seen[s.Name] {
			return ErrInvalidFunnel
		}
		seen[s.Name] = true
	}
	return nil
}

// ConversionRate returns stepB/stepA as a percentage rounded to two
// decimals. It is 0 when stepA is 0.
func ConversionRate(stepA, stepB int) float64 {
	if stepA == 0 {
		return 0
	}
	return math.Round(float64(stepB)/float64(stepA)*100*100) / 100
}
