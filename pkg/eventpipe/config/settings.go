package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "EVENTPIPE_"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Settings is the complete pipeline configuration.
type Settings struct {
	// Development enables drop, consent and exhaustion logs.
	Development bool `env:"DEVELOPMENT"`

	// Endpoint is the ingestion URL events are posted to.
	Endpoint string `env:"ENDPOINT"`

	// HTTPTimeout bounds one ingestion request.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT"`

	Store     StoreSettings     `envPrefix:"STORE_"`
	Retry     RetrySettings     `envPrefix:"RETRY_"`
	Kafka     KafkaSettings     `envPrefix:"KAFKA_"`
	Telemetry TelemetrySettings `envPrefix:"TELEMETRY_"`
}

// StoreSettings selects where the retry queue is persisted.
type StoreSettings struct {
	Kind string `env:"KIND"`
	Path string `env:"PATH"`
	Addr string `env:"ADDR"`
	Key  string `env:"KEY"`
}

// RetrySettings tunes the retry queue.
type RetrySettings struct {
	BaseDelay     time.Duration `env:"BASE_DELAY"`
	MaxRetries    int           `env:"MAX_RETRIES"`
	FlushInterval time.Duration `env:"FLUSH_INTERVAL"`
	MaxAge        time.Duration `env:"MAX_AGE"`
	Concurrency   int           `env:"CONCURRENCY"`
}

// KafkaSettings enables the Kafka provider when Brokers is set.
type KafkaSettings struct {
	Brokers  []string `env:"BROKERS" envSeparator:","`
	Topic    string   `env:"TOPIC"`
	ClientID string   `env:"CLIENT_ID"`
}

// Enabled reports whether a Kafka provider should be created.
func (k KafkaSettings) Enabled() bool { return len(k.Brokers) > 0 }

// TelemetrySettings toggles OpenTelemetry instrumentation.
type TelemetrySettings struct {
	Metrics bool `env:"METRICS"`
	Tracing bool `env:"TRACING"`
}

// DefaultSettings returns settings for an in-memory queue posting to a
// local ingestion endpoint.
func DefaultSettings() Settings {
	return Settings{
		Endpoint:    "http://localhost:8080/api/analytics/events",
		HTTPTimeout: 10 * time.Second,
		Store: StoreSettings{
			Kind: StoreMemory,
		},
		Retry: RetrySettings{
			BaseDelay:     time.Second,
			MaxRetries:    5,
			FlushInterval: 5 * time.Second,
			MaxAge:        24 * time.Hour,
			Concurrency:   1,
		},
		Kafka: KafkaSettings{
			Topic: "analytics-events",
		},
	}
}

// FromConfig overlays values present in c onto DefaultSettings.
//
// Recognized layout:
//
//	development: true
//	endpoint: https://ingest.example.com/events
//	http_timeout: 5s
//	store: {kind: sqlite, path: ./queue.db, addr: "", key: ""}
//	retry: {base_delay: 1s, max_retries: 5, flush_interval: 5s, max_age: 24h, concurrency: 1}
//	kafka: {brokers: [localhost:9092], topic: analytics-events, client_id: web}
//	telemetry: {metrics: true, tracing: true}
func FromConfig(c Config) Settings {
	s := DefaultSettings()

	s.Development = c.Bool("development", s.Development)
	s.Endpoint = c.String("endpoint", s.Endpoint)
	s.HTTPTimeout = c.Duration("http_timeout", s.HTTPTimeout)

	store := c.Section("store")
	s.Store.Kind = store.String("kind", s.Store.Kind)
	s.Store.Path = store.String("path", s.Store.Path)
	s.Store.Addr = store.String("addr", s.Store.Addr)
	s.Store.Key = store.String("key", s.Store.Key)

	retry := c.Section("retry")
	s.Retry.BaseDelay = retry.Duration("base_delay", s.Retry.BaseDelay)
	s.Retry.MaxRetries = retry.Int("max_retries", s.Retry.MaxRetries)
	s.Retry.FlushInterval = retry.Duration("flush_interval", s.Retry.FlushInterval)
	s.Retry.MaxAge = retry.Duration("max_age", s.Retry.MaxAge)
	s.Retry.Concurrency = retry.Int("concurrency", s.Retry.Concurrency)

	kafka := c.Section("kafka")
	s.Kafka.Brokers = kafka.StringSlice("brokers", s.Kafka.Brokers)
	s.Kafka.Topic = kafka.String("topic", s.Kafka.Topic)
	s.Kafka.ClientID = kafka.String("client_id", s.Kafka.ClientID)

	telemetry := c.Section("telemetry")
	s.Telemetry.Metrics = telemetry.Bool("metrics", s.Telemetry.Metrics)
	s.Telemetry.Tracing = telemetry.Bool("tracing", s.Telemetry.Tracing)

	return s
}

// ApplyEnv overrides s with EVENTPIPE_* environment variables. Unset
// variables leave the current value alone.
func (s *Settings) ApplyEnv() error {
	if err := env.ParseWithOptions(s, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads settings from path (YAML or JSON; empty for defaults only),
// applies environment overrides and validates the result.
func Load(path string) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		c, err := FromFile(path)
		if err != nil {
			return Settings{}, err
		}
		s = FromConfig(c)
	}
	if err := s.ApplyEnv(); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks that the settings describe a usable pipeline.
func (s Settings) Validate() error {
	u, err := url.Parse(s.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint %q must be an http(s) URL: %w", s.Endpoint, errors.ErrInvalidConfig)
	}
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative: %w", errors.ErrInvalidConfig)
	}

	switch s.Store.Kind {
	case StoreMemory:
	case StoreFile, StoreSQLite:
		if s.Store.Path == "" {
			return fmt.Errorf("store %s requires a path: %w", s.Store.Kind, errors.ErrInvalidConfig)
		}
	case StoreRedis:
		if s.Store.Addr == "" {
			return fmt.Errorf("store redis requires an addr: %w", errors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("unknown store kind %q: %w", s.Store.Kind, errors.ErrInvalidConfig)
	}

	r := s.Retry
	if r.BaseDelay < 0 || r.MaxRetries < 0 || r.FlushInterval < 0 || r.MaxAge < 0 || r.Concurrency < 0 {
		return fmt.Errorf("retry settings must not be negative: %w", errors.ErrInvalidConfig)
	}

	if s.Kafka.Enabled() && s.Kafka.Topic == "" {
		return fmt.Errorf("kafka brokers set without a topic: %w", errors.ErrInvalidConfig)
	}
	return nil
}
