package funnel

import (
	"fmt"
	"sync"
)

// Catalog is a thread-safe set of funnels indexed by name.
// It remembers registration order for Available.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Funnel
	order   []string
}

// NewCatalog creates a catalog holding funnels.
// It panics if any funnel is invalid.
func NewCatalog(funnels ...Funnel) *Catalog {
	c := &Catalog{entries: make(map[string]Funnel, len(funnels))}
	for _, f := range funnels {
		if err := c.Register(f); err != nil {
			panic(err)
		}
	}
	return c
}

// Default holds the built-in funnels.
var Default = NewCatalog(Builtin()...)

// Register adds or replaces a funnel.
func (c *Catalog) Register(f Funnel) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("register funnel %q: %w", f.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[f.Name]; !exists {
		c.order = append(c.order, f.Name)
	}
	c.entries[f.Name] = f
	return nil
}

// Lookup returns the funnel named name.
func (c *Catalog) Lookup(name string) (Funnel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.entries[name]
	return f, ok
}

// Available returns funnel names in registration order.
func (c *Catalog) Available() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// StepName returns the name of step n in the named funnel.
func (c *Catalog) StepName(funnel string, n int) (string, bool) {
	f, ok := c.Lookup(funnel)
	if !ok {
		return "", false
	}
	return f.StepName(n)
}

// StepCount returns the number of steps of the named funnel, or 0.
func (c *Catalog) StepCount(funnel string) int {
	f, _ := c.Lookup(funnel)
	return f.StepCount()
}

// Progress returns the rounded completion percentage, or 0 for unknown
// funnels.
func (c *Catalog) Progress(funnel string, currentStep int) int {
	f, _ := c.Lookup(funnel)
	return f.Progress(currentStep)
}

// Completed reports whether completedSteps includes the funnel's last step.
func (c *Catalog) Completed(funnel string, completedSteps []int) bool {
	f, _ := c.Lookup(funnel)
	return f.Completed(completedSteps)
}

// Lookup finds a funnel in the Default catalog.
func Lookup(name string) (Funnel, bool) { return Default.Lookup(name) }

// Available lists the Default catalog.
func Available() []string { return Default.Available() }

// StepName resolves a step in the Default catalog.
func StepName(funnel string, n int) (string, bool) { return Default.StepName(funnel, n) }

// StepCount counts steps in the Default catalog.
func StepCount(funnel string) int { return Default.StepCount(funnel) }

// Progress computes progress in the Default catalog.
func Progress(funnel string, currentStep int) int { return Default.Progress(funnel, currentStep) }

// Completed checks completion in the Default catalog.
func Completed(funnel string, completedSteps []int) bool {
	return Default.Completed(funnel, completedSteps)
}
