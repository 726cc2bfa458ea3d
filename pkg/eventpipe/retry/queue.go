package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/observability"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// QueuedEvent is an event awaiting re-delivery.
type QueuedEvent struct {
	ID          string           `json:"id"`
	EventName   string           `json:"event_name"`
	Properties  value.Properties `json:"properties"`
	Timestamp   time.Time        `json:"timestamp"`
	RetryCount  int              `json:"retry_count"`
	NextRetryAt time.Time        `json:"next_retry_at"`

	// Targets names the providers that still need the event. Empty means
	// the Deliverer's default destination.
	Targets []string `json:"targets,omitempty"`
}

func (e QueuedEvent) clone() QueuedEvent {
	e.Properties = e.Properties.Clone()
	e.Targets = slices.Clone(e.Targets)
	return e
}

// Config configures a Queue. Zero fields take the DefaultConfig value.
type Config struct {
	// BaseDelay is the delay before the first attempt; attempt n waits
	// BaseDelay * 2^n after the failure that preceded it.
	BaseDelay time.Duration

	// MaxRetries is the number of failed attempts after which an event
	// is dropped.
	MaxRetries int

	// FlushInterval is the period of the background pass started by Start.
	FlushInterval time.Duration

	// MaxAge bounds how old a persisted event may be when the queue loads.
	MaxAge time.Duration

	// Concurrency limits parallel deliveries within one pass.
	Concurrency int

	// Now is the clock. Tests inject a fake.
	Now func() time.Time

	// Logger receives queue logs. Nil uses slog.Default().
	Logger *slog.Logger

	// Development enables logs for exhausted events.
	Development bool

	Metrics observability.MetricsRecorder
	Spans   observability.SpanManager
}

// DefaultConfig returns the standard queue configuration.
func DefaultConfig() Config {
	return Config{
		BaseDelay:     time.Second,
		MaxRetries:    5,
		FlushInterval: 5 * time.Second,
		MaxAge:        24 * time.Hour,
		Concurrency:   1,
		Now:           time.Now,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BaseDelay == 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = def.FlushInterval
	}
	if c.MaxAge == 0 {
		c.MaxAge = def.MaxAge
	}
	if c.Concurrency == 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = observability.NoopMetrics{}
	}
	if c.Spans == nil {
		c.Spans = observability.NoopSpanManager{}
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	switch {
	case c.BaseDelay < 0:
		return fmt.Errorf("base delay %v must not be negative: %w", c.BaseDelay, errors.ErrInvalidConfig)
	case c.MaxRetries < 0:
		return fmt.Errorf("max retries %d must not be negative: %w", c.MaxRetries, errors.ErrInvalidConfig)
	case c.FlushInterval < 0:
		return fmt.Errorf("flush interval %v must not be negative: %w", c.FlushInterval, errors.ErrInvalidConfig)
	case c.MaxAge < 0:
		return fmt.Errorf("max age %v must not be negative: %w", c.MaxAge, errors.ErrInvalidConfig)
	case c.Concurrency < 0:
		return fmt.Errorf("concurrency %d must not be negative: %w", c.Concurrency, errors.ErrInvalidConfig)
	}
	return nil
}

// ProcessResult summarizes one ProcessQueue pass.
type ProcessResult struct {
	// Skipped is true when the pass did not run because another was active.
	Skipped bool

	Attempted int
	Delivered int
	Failed    int
	Exhausted int
}

// Stats reports lifetime counters of a Queue.
type Stats struct {
	Size      int
	Added     int
	Delivered int
	Failed    int
	Exhausted int
	Purged    int
	Running   bool
}

// Queue is a durable retry queue. It is safe for concurrent use.
type Queue struct {
	store     Store
	deliverer Deliverer
	cfg       Config
	backoff   Backoff

	mu     sync.Mutex
	events []QueuedEvent
	stats  Stats

	// persistMu orders encode+save so the newest state is written last.
	persistMu sync.Mutex

	processing atomic.Bool

	// unsaved is set while the store lags behind memory after a failed save.
	unsaved atomic.Bool

	runMu  sync.Mutex
	cancel context.CancelFunc
}

// New creates a queue, loading persisted events from store.
//
// Events older than cfg.MaxAge are discarded and the trimmed document is
// saved back. An unreadable or corrupt document is logged and treated as
// empty. A nil store keeps the queue in memory only.
func New(ctx context.Context, store Store, deliverer Deliverer, cfg Config) (*Queue, error) {
	if deliverer == nil {
		return nil, fmt.Errorf("retry queue: nil deliverer: %w", errors.ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = NewMemoryStore()
	}

	q := &Queue{
		store:     store,
		deliverer: deliverer,
		cfg:       cfg,
		backoff:   Backoff{Base: cfg.BaseDelay},
	}
	q.load(ctx)
	return q, nil
}

func (q *Queue) load(ctx context.Context) {
	data, err := q.store.Load(ctx)
	if err != nil {
		observability.LogPersistError(q.cfg.Logger, "load", err)
		return
	}
	events, err := Decode(data)
	if err != nil {
		observability.LogPersistError(q.cfg.Logger, "decode", err)
		return
	}

	now := q.cfg.Now()
	kept := events[:0]
	for _, ev := range events {
		if now.Sub(ev.Timestamp) > q.cfg.MaxAge {
			continue
		}
		kept = append(kept, ev)
	}
	purged := len(events) - len(kept)

	q.mu.Lock()
	q.events = kept
	q.stats.Purged = purged
	q.mu.Unlock()

	observability.LogQueueLoaded(q.cfg.Logger, len(kept), purged)
	if purged > 0 {
		q.persistLogged(ctx)
	}
	q.cfg.Metrics.RecordQueueSize(ctx, len(kept))
}

// Add enqueues an event for its first retry after BaseDelay and persists
// the queue. props and targets are copied. targets restricts redelivery to
// the named providers.
func (q *Queue) Add(ctx context.Context, name string, props value.Properties, targets ...string) QueuedEvent {
	now := q.cfg.Now()
	ev := QueuedEvent{
		ID:          newID(now),
		EventName:   name,
		Properties:  props.Clone(),
		Timestamp:   now,
		RetryCount:  0,
		NextRetryAt: now.Add(q.backoff.Delay(0)),
		Targets:     slices.Clone(targets),
	}
	if ev.Properties == nil {
		ev.Properties = value.Properties{}
	}

	q.mu.Lock()
	q.events = append(q.events, ev)
	q.stats.Added++
	size := len(q.events)
	q.mu.Unlock()

	observability.LogEventQueued(q.cfg.Logger, ev.ID, ev.EventName, ev.NextRetryAt)
	q.persistLogged(ctx)
	q.cfg.Metrics.RecordQueueSize(ctx, size)
	return ev.clone()
}

// ProcessQueue attempts every event whose retry time has come.
//
// Only one pass runs at a time; a call made while another pass is active
// returns immediately with Skipped set. Delivered events are removed. A
// failed event is rescheduled, or dropped once it has failed MaxRetries
// times. The queue is persisted once at the end of the pass.
func (q *Queue) ProcessQueue(ctx context.Context) ProcessResult {
	if !q.processing.CompareAndSwap(false, true) {
		return ProcessResult{Skipped: true}
	}
	defer q.processing.Store(false)

	now := q.cfg.Now()
	q.mu.Lock()
	var due []QueuedEvent
	for _, ev := range q.events {
		if !ev.NextRetryAt.After(now) {
			due = append(due, ev.clone())
		}
	}
	q.mu.Unlock()

	var result ProcessResult
	if len(due) == 0 {
		// An idle pass writes only to catch up after a failed save.
		if q.unsaved.Load() {
			q.persistLogged(ctx)
		}
		return result
	}

	var g errgroup.Group
	g.SetLimit(max(q.cfg.Concurrency, 1))
	for _, ev := range due {
		g.Go(func() error {
			err := q.deliver(ctx, ev)
			q.settle(ctx, ev, err, &result)
			return nil
		})
	}
	_ = g.Wait()

	q.persistLogged(ctx)
	q.cfg.Metrics.RecordQueueSize(ctx, q.Size())
	return result
}

func (q *Queue) deliver(ctx context.Context, ev QueuedEvent) (err error) {
	ctx, span := q.cfg.Spans.StartDeliverySpan(ctx, ev.ID, ev.EventName, ev.RetryCount)
	elapsed := observability.TimedOperation()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deliverer panic: %v", r)
		}
		q.cfg.Metrics.RecordDelivery(ctx, ev.EventName, elapsed(), err)
		q.cfg.Spans.EndSpanWithError(span, err)
	}()

	return q.deliverer.Deliver(ctx, ev)
}

// settle applies the outcome of one delivery. Entries removed while the
// delivery was in flight are left alone.
func (q *Queue) settle(ctx context.Context, ev QueuedEvent, err error, result *ProcessResult) {
	q.mu.Lock()
	result.Attempted++
	idx := q.indexOf(ev.ID)
	if idx < 0 {
		q.mu.Unlock()
		return
	}

	if err == nil {
		q.removeAt(idx)
		result.Delivered++
		q.stats.Delivered++
		q.mu.Unlock()
		return
	}

	entry := &q.events[idx]
	entry.RetryCount++
	retries := entry.RetryCount
	if retries >= q.cfg.MaxRetries {
		q.removeAt(idx)
		result.Exhausted++
		q.stats.Exhausted++
		q.mu.Unlock()

		observability.LogDeliveryFailed(q.cfg.Logger, ev.ID, retries, errors.Categorize(err).String(), err)
		if q.cfg.Development {
			observability.LogRetryExhausted(q.cfg.Logger, ev.ID, ev.EventName, retries)
		}
		q.cfg.Metrics.RecordRetryExhausted(ctx, ev.EventName)
		return
	}

	var partial *PartialDeliveryError
	if stderrors.As(err, &partial) {
		entry.Targets = slices.DeleteFunc(entry.Targets, func(name string) bool {
			return slices.Contains(partial.Delivered, name)
		})
	}
	entry.NextRetryAt = q.cfg.Now().Add(q.backoff.Delay(retries))
	result.Failed++
	q.stats.Failed++
	q.mu.Unlock()

	observability.LogDeliveryFailed(q.cfg.Logger, ev.ID, retries, errors.Categorize(err).String(), err)
}

func (q *Queue) indexOf(id string) int {
	for i := range q.events {
		if q.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) removeAt(i int) {
	q.events = append(q.events[:i], q.events[i+1:]...)
}

// Size returns the number of queued events.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Snapshot returns a copy of the queued events in insertion order.
func (q *Queue) Snapshot() []QueuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]QueuedEvent, len(q.events))
	for i, ev := range q.events {
		out[i] = ev.clone()
	}
	return out
}

// Stats returns the queue's counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	s := q.stats
	s.Size = len(q.events)
	q.mu.Unlock()

	s.Running = q.processing.Load()
	return s
}

// Clear removes every queued event and persists the empty queue.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	q.events = nil
	q.mu.Unlock()

	q.cfg.Metrics.RecordQueueSize(ctx, 0)
	return q.persist(ctx)
}

// Start runs one pass immediately, then one every FlushInterval until Stop
// or Close is called or ctx is cancelled. Calling Start on a running queue
// is a no-op.
//
// Cancellation stops the timer only; deliveries already in flight finish.
func (q *Queue) Start(ctx context.Context) {
	q.runMu.Lock()
	defer q.runMu.Unlock()

	if q.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	go q.run(runCtx)
}

func (q *Queue) run(ctx context.Context) {
	deliveryCtx := context.WithoutCancel(ctx)
	q.ProcessQueue(deliveryCtx)

	ticker := time.NewTicker(q.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			q.ProcessQueue(deliveryCtx)
		}
	}
}

// Stop stops the background timer. It does not wait for a pass in progress.
func (q *Queue) Stop() {
	q.runMu.Lock()
	defer q.runMu.Unlock()

	if q.cancel == nil {
		return
	}
	q.cancel()
	q.cancel = nil
}

// Close stops the timer and performs a final save of the queue.
// It does not close the Store.
func (q *Queue) Close() error {
	q.Stop()
	return q.persist(context.Background())
}

// persist saves the queue. The save outlives ctx: an event accepted by Add
// must reach the store even when the request that produced it has ended.
func (q *Queue) persist(ctx context.Context) error {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	q.mu.Lock()
	data, err := Encode(q.events)
	q.mu.Unlock()
	if err == nil {
		err = q.store.Save(context.WithoutCancel(ctx), data)
	}
	q.unsaved.Store(err != nil)
	return err
}

// persistLogged saves the queue, logging rather than returning failures.
// The in-memory queue stays authoritative when the store is unavailable.
func (q *Queue) persistLogged(ctx context.Context) {
	if err := q.persist(ctx); err != nil {
		observability.LogPersistError(q.cfg.Logger, "save", err)
	}
}

// newID returns "<unix-millis>-<9 random hex chars>".
func newID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix[:9])
}
