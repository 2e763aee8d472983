// Package subscriber runs the Pub/Sub receive loop shared by every outbox consumer:
// envelope decoding, event filtering, Redis dedupe and ack/nack bookkeeping.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
)

// Event is a decoded outbox message.
type Event struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType string
	AggregateID   string
	OccurredAt    time.Time
	Envelope      outbox.PayloadEnvelope
	Payload       interface{}
}

// Handler processes one decoded event. Returning an error nacks the message.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type decoder interface {
	DecodeMessage(eventType enums.OutboxEventType, data []byte) (outbox.PayloadEnvelope, interface{}, error)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

// Params configures a Subscriber.
type Params struct {
	Name         string
	Subscription receiver
	Decoders     decoder
	Idempotency  idempotencyChecker
	Handler      Handler
	Events       []enums.OutboxEventType
	Logger       *logger.Logger
}

// Subscriber consumes one subscription.
type Subscriber struct {
	name         string
	subscription receiver
	decoders     decoder
	manager      idempotencyChecker
	handler      Handler
	events       map[enums.OutboxEventType]struct{}
	logg         *logger.Logger
}

// New validates params and builds a Subscriber. An empty Events list accepts every event type.
func New(p Params) (*Subscriber, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, errors.New("consumer name is required")
	}
	if p.Subscription == nil {
		return nil, errors.New("subscription is required")
	}
	if p.Decoders == nil {
		return nil, errors.New("payload decoders are required")
	}
	if p.Idempotency == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if p.Handler == nil {
		return nil, errors.New("handler is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	events := make(map[enums.OutboxEventType]struct{}, len(p.Events))
	for _, e := range p.Events {
		events[e] = struct{}{}
	}
	return &Subscriber{
		name:         strings.TrimSpace(p.Name),
		subscription: p.Subscription,
		decoders:     p.Decoders,
		manager:      p.Idempotency,
		handler:      p.Handler,
		events:       events,
		logg:         p.Logger,
	}, nil
}

// Run receives messages until ctx is canceled.
func (s *Subscriber) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.logg.Info(s.logg.WithField(ctx, "consumer", s.name), "subscriber started")
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.Process(innerCtx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Process handles one message and reports whether it should be acked. Malformed
// messages are acked so they are not redelivered forever.
func (s *Subscriber) Process(ctx context.Context, msg *gcppubsub.Message) bool {
	fields := map[string]any{"consumer": s.name, "message_id": msg.ID}
	logCtx := s.logg.WithFields(ctx, fields)

	event, err := s.decode(msg)
	if err != nil {
		fields["error"] = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "invalid outbox message")
		return true
	}
	fields["event_id"] = event.EventID
	fields["event_type"] = event.EventType
	fields["aggregate_id"] = event.AggregateID
	logCtx = s.logg.WithFields(ctx, fields)

	if len(s.events) > 0 {
		if _, ok := s.events[event.EventType]; !ok {
			s.logg.Debug(logCtx, "event ignored by consumer")
			return true
		}
	}

	already, err := s.manager.CheckAndMarkProcessed(logCtx, s.name, event.EventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		s.logg.Info(logCtx, "event already processed")
		return true
	}

	if err := s.handler.Handle(logCtx, *event); err != nil {
		s.logg.Error(logCtx, "handler error", err)
		if relErr := s.manager.Release(logCtx, s.name, event.EventID); relErr != nil {
			s.logg.Error(logCtx, "release idempotency key failed", relErr)
		}
		return false
	}

	s.logg.Info(logCtx, "event handled")
	return true
}

func (s *Subscriber) decode(msg *gcppubsub.Message) (*Event, error) {
	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	envelope, payload, err := s.decoders.DecodeMessage(eventType, msg.Data)
	if err != nil {
		return nil, err
	}

	eventID := strings.TrimSpace(envelope.EventID)
	if eventID == "" {
		eventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = msg.PublishTime
	}

	return &Event{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: strings.TrimSpace(msg.Attributes["aggregate_type"]),
		AggregateID:   strings.TrimSpace(msg.Attributes["aggregate_id"]),
		OccurredAt:    occurredAt.UTC(),
		Envelope:      envelope,
		Payload:       payload,
	}, nil
}
