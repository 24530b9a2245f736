package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assessment-ops-api/internal/middleware"
)

// Domain event types.
const (
	EventIngestionCompleted = "ingestion.completed"
	EventAttemptFlagged     = "attempt.flagged"
	EventAttemptRescored    = "attempt.rescored"
	EventTestScoringUpdated = "test.scoring_updated"
)

// DomainEvent is the envelope published for every state change.
type DomainEvent struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	Source        string      `json:"source"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Data          interface{} `json:"data"`
}

// EventPublisher fans domain events out to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// eventSink delivers an encoded event to one broker.
type eventSink struct {
	name    string
	publish func(ctx context.Context, payload []byte) error
}

type brokerPublisher struct {
	sinks  []eventSink
	logger zerolog.Logger
	nodeID string
	now    func() time.Time
}

// NewEventPublisher publishes to the Redis channel and the NATS subject derived
// from subject. Either broker may be nil.
func NewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	subject = strings.TrimSpace(subject)
	publisher := &brokerPublisher{
		logger: logger.With().Str("component", "event_publisher").Logger(),
		nodeID: uuid.NewString(),
		now:    time.Now,
	}
	if subject == "" {
		return publisher
	}

	if redisClient != nil {
		channel := strings.ReplaceAll(subject, ".", ":")
		publisher.sinks = append(publisher.sinks, eventSink{
			name: "redis",
			publish: func(ctx context.Context, payload []byte) error {
				return redisClient.Publish(ctx, channel, payload).Err()
			},
		})
	}
	if natsConn != nil {
		publisher.sinks = append(publisher.sinks, eventSink{
			name: "nats",
			publish: func(_ context.Context, payload []byte) error {
				return natsConn.Publish(subject, payload)
			},
		})
	}

	return publisher
}

// Publish delivers the event to every broker; one failing broker does not stop the others.
func (p *brokerPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	if len(p.sinks) == 0 {
		return nil
	}

	event := DomainEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        p.nodeID,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		OccurredAt:    p.now().UTC(),
		Data:          data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	for _, sink := range p.sinks {
		if err := sink.publish(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", sink.name, err))
			continue
		}
		p.logger.Debug().Str("event_type", eventType).Str("event_id", event.ID).Str("broker", sink.name).Msg("domain event published")
	}

	return errors.Join(errs...)
}

func publishEvent(ctx context.Context, publisher EventPublisher, logger zerolog.Logger, eventType string, data interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, eventType, data); err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish domain event")
	}
}
