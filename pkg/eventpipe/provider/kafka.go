package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// Message types published to Kafka.
const (
	MessageTrack    = "track"
	MessageIdentify = "identify"
	MessageReset    = "reset"
)

// KafkaMessage is the JSON value of every published record.
type KafkaMessage struct {
	Type       string           `json:"type"`
	Event      string           `json:"event,omitempty"`
	UserID     string           `json:"user_id,omitempty"`
	Properties value.Properties `json:"properties,omitempty"`
	Timestamp  string           `json:"timestamp"`
}

// KafkaConfig configures NewKafkaProvider.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// KafkaProvider publishes events to a Kafka topic.
type KafkaProvider struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

// NewKafkaProvider connects a synchronous producer to cfg.Brokers.
func NewKafkaProvider(cfg KafkaConfig) (*KafkaProvider, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka provider: brokers and topic are required: %w", errors.ErrInvalidConfig)
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	if cfg.ClientID != "" {
		saramaConfig.ClientID = cfg.ClientID
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaProviderWithProducer(producer, cfg.Topic), nil
}

// NewKafkaProviderWithProducer wraps an existing producer.
// The provider takes ownership and closes it on Close.
func NewKafkaProviderWithProducer(producer sarama.SyncProducer, topic string) *KafkaProvider {
	return &KafkaProvider{producer: producer, topic: topic, now: time.Now}
}

// Name implements tracker.Provider.
func (p *KafkaProvider) Name() string { return "kafka" }

// Track implements tracker.Provider.
func (p *KafkaProvider) Track(_ context.Context, event string, props value.Properties) error {
	return p.send("track", "", KafkaMessage{
		Type:       MessageTrack,
		Event:      event,
		Properties: props,
	}, p.now())
}

// Deliver implements retry.Deliverer for queued events addressed to this
// provider. The record carries the time the event was tracked.
func (p *KafkaProvider) Deliver(_ context.Context, ev retry.QueuedEvent) error {
	return p.send("redeliver", "", KafkaMessage{
		Type:       MessageTrack,
		Event:      ev.EventName,
		Properties: ev.Properties,
	}, ev.Timestamp)
}

// Identify implements tracker.Provider. Records are keyed by user id so all
// identify records of one user land on the same partition.
func (p *KafkaProvider) Identify(_ context.Context, userID string, traits value.Properties) error {
	return p.send("identify", userID, KafkaMessage{
		Type:       MessageIdentify,
		UserID:     userID,
		Properties: traits,
	}, p.now())
}

// Reset implements tracker.Provider. A reset record tells consumers the
// session identity ended.
func (p *KafkaProvider) Reset(context.Context) error {
	return p.send("reset", "", KafkaMessage{Type: MessageReset}, p.now())
}

func (p *KafkaProvider) send(op, key string, msg KafkaMessage, at time.Time) error {
	record, err := p.record(key, msg, at)
	if err != nil {
		return &errors.ProviderError{Provider: p.Name(), Operation: op, Err: err}
	}
	if _, _, err := p.producer.SendMessage(record); err != nil {
		return &errors.ProviderError{Provider: p.Name(), Operation: op, Err: errors.Transient(err, "send message")}
	}
	return nil
}

func (p *KafkaProvider) record(key string, msg KafkaMessage, at time.Time) (*sarama.ProducerMessage, error) {
	msg.Timestamp = at.UTC().Format(time.RFC3339)

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	record := &sarama.ProducerMessage{
		Topic:     p.topic,
		Value:     sarama.ByteEncoder(payload),
		Timestamp: at,
	}
	if key != "" {
		record.Key = sarama.StringEncoder(key)
	}
	return record, nil
}

// Close closes the producer.
func (p *KafkaProvider) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
