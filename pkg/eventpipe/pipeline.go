package eventpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/config"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/funnel"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/observability"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/provider"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/tracker"
)

// Pipeline owns one tracker, its retry queue and everything they depend on.
type Pipeline struct {
	settings config.Settings
	logger   *slog.Logger

	store      retry.Store
	ownsStore  bool
	queue      *retry.Queue
	tracker    *tracker.Tracker
	kafka      *provider.KafkaProvider
	httpSender *provider.HTTPProvider

	closeOnce sync.Once
	closeErr  error
}

// New builds a pipeline from settings.
//
// The retry queue is loaded from the configured store before New returns.
// Background processing does not begin until Start.
func New(ctx context.Context, settings config.Settings, consent tracker.ConsentGate, opts ...Option) (*Pipeline, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	cfg := pipelineConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.metrics == nil {
		cfg.metrics = observability.NoopMetrics{}
		if settings.Telemetry.Metrics {
			cfg.metrics = observability.NewMetricsRecorder()
		}
	}
	if cfg.spans == nil {
		cfg.spans = observability.NoopSpanManager{}
		if settings.Telemetry.Tracing {
			cfg.spans = observability.NewSpanManager()
		}
	}

	p := &Pipeline{settings: settings, logger: cfg.logger}

	p.store = cfg.store
	if p.store == nil {
		store, err := OpenStore(ctx, settings.Store)
		if err != nil {
			return nil, err
		}
		p.store = store
		p.ownsStore = true
	}

	var httpOpts []retry.HTTPOption
	if settings.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, retry.WithTimeout(settings.HTTPTimeout))
	}
	if cfg.httpClient != nil {
		httpOpts = append(httpOpts, retry.WithHTTPClient(cfg.httpClient))
	}
	sender := retry.NewHTTPDeliverer(settings.Endpoint, httpOpts...)
	p.httpSender = provider.NewHTTPProvider(sender)

	providers := []tracker.Provider{p.httpSender}
	switch {
	case cfg.kafkaProducer != nil:
		p.kafka = provider.NewKafkaProviderWithProducer(cfg.kafkaProducer, settings.Kafka.Topic)
	case settings.Kafka.Enabled():
		kafka, err := provider.NewKafkaProvider(provider.KafkaConfig{
			Brokers:  settings.Kafka.Brokers,
			Topic:    settings.Kafka.Topic,
			ClientID: settings.Kafka.ClientID,
		})
		if err != nil {
			p.closeStore()
			return nil, err
		}
		p.kafka = kafka
	}
	if p.kafka != nil {
		providers = append(providers, p.kafka)
	}
	providers = append(providers, cfg.providers...)

	// Queued events go back only to the providers that failed them.
	var deliverer retry.Deliverer = tracker.NewRedeliverer(sender, providers...)
	if cfg.deliverer != nil {
		deliverer = cfg.deliverer
	}

	queue, err := retry.New(ctx, p.store, deliverer, retry.Config{
		BaseDelay:     settings.Retry.BaseDelay,
		MaxRetries:    settings.Retry.MaxRetries,
		FlushInterval: settings.Retry.FlushInterval,
		MaxAge:        settings.Retry.MaxAge,
		Concurrency:   settings.Retry.Concurrency,
		Logger:        cfg.logger,
		Development:   settings.Development,
		Metrics:       cfg.metrics,
		Spans:         cfg.spans,
	})
	if err != nil {
		if p.kafka != nil {
			_ = p.kafka.Close()
		}
		p.closeStore()
		return nil, err
	}
	p.queue = queue

	trackerOpts := []tracker.Option{
		tracker.WithProviders(providers...),
		tracker.WithLogger(cfg.logger),
		tracker.WithDevelopment(settings.Development),
		tracker.WithMetrics(cfg.metrics),
		tracker.WithSpanManager(cfg.spans),
	}
	if cfg.validator != nil {
		trackerOpts = append(trackerOpts, tracker.WithValidator(cfg.validator))
	}
	p.tracker = tracker.New(consent, queue, trackerOpts...)

	return p, nil
}

// OpenStore opens the store described by s.
func OpenStore(ctx context.Context, s config.StoreSettings) (retry.Store, error) {
	key := s.Key
	if key == "" {
		key = retry.DefaultKey
	}
	switch s.Kind {
	case config.StoreMemory, "":
		return retry.NewMemoryStore(), nil
	case config.StoreFile:
		return retry.NewFileStore(s.Path)
	case config.StoreSQLite:
		return retry.NewSQLiteStore(s.Path, key)
	case config.StoreRedis:
		return retry.DialRedisStore(ctx, s.Addr, key)
	default:
		return nil, fmt.Errorf("open store: unknown kind %q", s.Kind)
	}
}

// Settings returns the settings the pipeline was built from.
func (p *Pipeline) Settings() config.Settings { return p.settings }

// Tracker returns the event tracker.
func (p *Pipeline) Tracker() *tracker.Tracker { return p.tracker }

// Queue returns the retry queue.
func (p *Pipeline) Queue() *retry.Queue { return p.queue }

// Funnel returns a recorder for the named built-in or registered funnel.
func (p *Pipeline) Funnel(name string) (*funnel.Recorder, error) {
	return funnel.For(p.tracker, name)
}

// Start begins background retry processing. It returns immediately.
func (p *Pipeline) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// ConsentRevoked discards every queued event and resets the identity.
// Call it when the user withdraws analytics consent; events already queued
// are otherwise retried until delivered or exhausted.
func (p *Pipeline) ConsentRevoked(ctx context.Context) error {
	p.tracker.ResetUserIdentity(ctx)
	if err := p.queue.Clear(ctx); err != nil {
		return fmt.Errorf("clear retry queue: %w", err)
	}
	return nil
}

// Close stops background processing, persists the queue, and closes the
// Kafka producer and any store the pipeline opened. It is safe to call
// more than once.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		if err := p.queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close queue: %w", err))
		}
		if p.kafka != nil {
			if err := p.kafka.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close kafka: %w", err))
			}
		}
		if err := p.closeStore(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

func (p *Pipeline) closeStore() error {
	if !p.ownsStore || p.store == nil {
		return nil
	}
	return p.store.Close()
}
