package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assessment-ops-api/internal/middleware"
)

func TestEventPublisherPublishesToRedis(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subscription := client.Subscribe(ctx, "assessment:ingestion")
	defer subscription.Close()
	_, err := subscription.Receive(ctx)
	require.NoError(t, err)

	publisher := NewEventPublisher(client, nil, "assessment.ingestion", testLogger())
	ctx = middleware.ContextWithCorrelation(ctx, "corr-42")
	require.NoError(t, publisher.Publish(ctx, EventAttemptFlagged, map[string]string{"attempt_id": "a-1"}))

	message, err := subscription.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event DomainEvent
	require.NoError(t, json.Unmarshal([]byte(message.Payload), &event))
	require.Equal(t, EventAttemptFlagged, event.Type)
	require.Equal(t, "corr-42", event.CorrelationID)
	require.NotEmpty(t, event.ID)
	require.Equal(t, map[string]interface{}{"attempt_id": "a-1"}, event.Data)
}

func TestEventPublisherWithoutBrokers(t *testing.T) {
	publisher := NewEventPublisher(nil, nil, "assessment.ingestion", testLogger())
	require.NoError(t, publisher.Publish(context.Background(), EventIngestionCompleted, nil))

	disabled := NewEventPublisher(nil, nil, "", testLogger())
	require.NoError(t, disabled.Publish(context.Background(), EventIngestionCompleted, nil))
}

func TestEventPublisherDeliversPastFailingBroker(t *testing.T) {
	brokerDown := errors.New("connection refused")
	var delivered [][]byte
	publisher := &brokerPublisher{
		sinks: []eventSink{
			{name: "redis", publish: func(context.Context, []byte) error { return brokerDown }},
			{name: "nats", publish: func(_ context.Context, payload []byte) error {
				delivered = append(delivered, payload)
				return nil
			}},
		},
		logger: testLogger(),
		nodeID: "node-1",
		now:    func() time.Time { return baseTime },
	}

	err := publisher.Publish(context.Background(), EventAttemptRescored, map[string]string{"attempt_id": "a-1"})
	require.ErrorIs(t, err, brokerDown)
	require.ErrorContains(t, err, "publish to redis")

	require.Len(t, delivered, 1)
	var event DomainEvent
	require.NoError(t, json.Unmarshal(delivered[0], &event))
	require.Equal(t, EventAttemptRescored, event.Type)
	require.Equal(t, "node-1", event.Source)
}

func TestEventPublisherJoinsBrokerFailures(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	defer client.Close()
	server.Close()

	natsDown := errors.New("nats: connection closed")
	publisher := NewEventPublisher(client, nil, "assessment.ingestion", testLogger()).(*brokerPublisher)
	publisher.sinks = append(publisher.sinks, eventSink{
		name:    "nats",
		publish: func(context.Context, []byte) error { return natsDown },
	})

	err := publisher.Publish(context.Background(), EventAttemptFlagged, nil)
	require.Error(t, err)
	require.ErrorContains(t, err, "publish to redis")
	require.ErrorIs(t, err, natsDown)
}
