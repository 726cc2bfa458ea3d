package provider_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eperrors "github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/provider"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/tracker"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

var (
	_ tracker.Provider = (*provider.KafkaProvider)(nil)
	_ retry.Deliverer  = (*provider.KafkaProvider)(nil)
)

func newMockProducer(t *testing.T) *mocks.SyncProducer {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	return mocks.NewSyncProducer(t, cfg)
}

func decodeMessage(t *testing.T, val []byte) provider.KafkaMessage {
	t.Helper()
	var msg provider.KafkaMessage
	require.NoError(t, json.Unmarshal(val, &msg))
	return msg
}

func TestKafkaProvider_Track(t *testing.T) {
	mp := newMockProducer(t)
	var got provider.KafkaMessage
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		got = decodeMessage(t, val)
		return nil
	})

	p := provider.NewKafkaProviderWithProducer(mp, "analytics-events")
	require.NoError(t, p.Track(context.Background(), "match_liked", value.Properties{
		"match_score": value.Int(87),
	}))
	require.NoError(t, p.Close())

	assert.Equal(t, provider.MessageTrack, got.Type)
	assert.Equal(t, "match_liked", got.Event)
	assert.True(t, got.Properties["match_score"].Equal(value.Int(87)))
	assert.NotEmpty(t, got.Timestamp)
	assert.Equal(t, "kafka", p.Name())
}

func TestKafkaProvider_IdentifyAndReset(t *testing.T) {
	mp := newMockProducer(t)
	var identify, reset provider.KafkaMessage
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		identify = decodeMessage(t, val)
		return nil
	})
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		reset = decodeMessage(t, val)
		return nil
	})

	p := provider.NewKafkaProviderWithProducer(mp, "analytics-events")
	ctx := context.Background()
	require.NoError(t, p.Identify(ctx, "u-7", value.Properties{"language": value.String("nl")}))
	require.NoError(t, p.Reset(ctx))
	require.NoError(t, p.Close())

	assert.Equal(t, provider.MessageIdentify, identify.Type)
	assert.Equal(t, "u-7", identify.UserID)
	assert.True(t, identify.Properties["language"].Equal(value.String("nl")))

	assert.Equal(t, provider.MessageReset, reset.Type)
	assert.Empty(t, reset.UserID)
}

func TestKafkaProvider_SendFailure(t *testing.T) {
	mp := newMockProducer(t)
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := provider.NewKafkaProviderWithProducer(mp, "analytics-events")
	err := p.Track(context.Background(), "e", nil)
	require.NoError(t, p.Close())

	var provErr *eperrors.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "track", provErr.Operation)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.True(t, eperrors.IsRetryable(err))
}

func TestKafkaProvider_DeliverKeepsTrackedTime(t *testing.T) {
	mp := newMockProducer(t)
	var got provider.KafkaMessage
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		got = decodeMessage(t, val)
		return nil
	})

	tracked := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	p := provider.NewKafkaProviderWithProducer(mp, "analytics-events")
	require.NoError(t, p.Deliver(context.Background(), retry.QueuedEvent{
		ID:         "ev-1",
		EventName:  "search_performed",
		Properties: value.Properties{"results": value.Int(4)},
		Timestamp:  tracked,
	}))
	require.NoError(t, p.Close())

	assert.Equal(t, provider.MessageTrack, got.Type)
	assert.Equal(t, "search_performed", got.Event)
	assert.Equal(t, "2024-05-02T08:30:00Z", got.Timestamp)
	assert.True(t, got.Properties["results"].Equal(value.Int(4)))
}

func TestNewKafkaProvider_RequiresBrokersAndTopic(t *testing.T) {
	_, err := provider.NewKafkaProvider(provider.KafkaConfig{Topic: "t"})
	assert.ErrorIs(t, err, eperrors.ErrInvalidConfig)

	_, err = provider.NewKafkaProvider(provider.KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.ErrorIs(t, err, eperrors.ErrInvalidConfig)
}

func TestKafkaProvider_WithTracker(t *testing.T) {
	mp := newMockProducer(t)
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		msg := decodeMessage(t, val)
		if _, ok := msg.Properties["email"]; ok {
			return fmt.Errorf("email leaked to kafka")
		}
		return nil
	})

	p := provider.NewKafkaProviderWithProducer(mp, "analytics-events")
	tr := tracker.New(tracker.ConsentFunc(func() bool { return true }), nil, tracker.WithProviders(p))
	tr.TrackEvent(context.Background(), tracker.EventSignupCompleted, value.Properties{
		"method": value.String("email"),
		"email":  value.String("a@b.com"),
	})
	require.NoError(t, p.Close())
}
