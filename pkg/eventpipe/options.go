package eventpipe

import (
	"log/slog"
	"net/http"

	"github.com/IBM/sarama"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/observability"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/privacy"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/tracker"
)

// pipelineConfig holds construction options.
type pipelineConfig struct {
	logger        *slog.Logger
	httpClient    *http.Client
	store         retry.Store
	deliverer     retry.Deliverer
	kafkaProducer sarama.SyncProducer
	providers     []tracker.Provider
	validator     *privacy.Validator
	metrics       observability.MetricsRecorder
	spans         observability.SpanManager
}

// Option configures a Pipeline.
type Option func(*pipelineConfig)

// WithLogger sets the logger shared by the queue, tracker and validator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *pipelineConfig) {
		c.logger = logger
	}
}

// WithHTTPClient sets the client used for ingestion requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *pipelineConfig) {
		c.httpClient = client
	}
}

// WithStore replaces the store selected by Settings.Store.
// The caller keeps ownership; Close does not close it.
func WithStore(store retry.Store) Option {
	return func(c *pipelineConfig) {
		c.store = store
	}
}

// WithDeliverer replaces the deliverer used by the retry queue. By default
// queued events are routed back to the providers that failed them.
func WithDeliverer(d retry.Deliverer) Option {
	return func(c *pipelineConfig) {
		c.deliverer = d
	}
}

// WithKafkaProducer adds a Kafka provider publishing through producer to
// Settings.Kafka.Topic instead of dialing Settings.Kafka.Brokers.
// The pipeline takes ownership of the producer.
func WithKafkaProducer(producer sarama.SyncProducer) Option {
	return func(c *pipelineConfig) {
		c.kafkaProducer = producer
	}
}

// WithProviders adds providers after the built-in ones.
func WithProviders(providers ...tracker.Provider) Option {
	return func(c *pipelineConfig) {
		c.providers = append(c.providers, providers...)
	}
}

// WithValidator replaces the tracker's validator.
func WithValidator(v *privacy.Validator) Option {
	return func(c *pipelineConfig) {
		c.validator = v
	}
}

// WithMetrics overrides the recorder chosen by Settings.Telemetry.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *pipelineConfig) {
		c.metrics = m
	}
}

// WithSpanManager overrides the span manager chosen by Settings.Telemetry.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *pipelineConfig) {
		c.spans = s
	}
}
