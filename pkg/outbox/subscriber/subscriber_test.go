package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/registry"
)

type stubReceiver struct{}

func (stubReceiver) Receive(context.Context, func(context.Context, *gcppubsub.Message)) error {
	return nil
}

type stubManager struct {
	seen     map[string]bool
	released []string
	err      error
}

func (m *stubManager) CheckAndMarkProcessed(_ context.Context, consumer, eventID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	key := consumer + ":" + eventID
	if m.seen[key] {
		return true, nil
	}
	m.seen[key] = true
	return false, nil
}

func (m *stubManager) Release(_ context.Context, consumer, eventID string) error {
	delete(m.seen, consumer+":"+eventID)
	m.released = append(m.released, eventID)
	return nil
}

func newSubscriber(t *testing.T, manager *stubManager, handler Handler, events ...enums.OutboxEventType) *Subscriber {
	t.Helper()
	sub, err := New(Params{
		Name:         "catalog-refresh",
		Subscription: stubReceiver{},
		Decoders:     registry.NewPayloadDecoders(),
		Idempotency:  manager,
		Handler:      handler,
		Events:       events,
		Logger:       logger.Nop(),
	})
	if err != nil {
		t.Fatalf("new subscriber: %v", err)
	}
	return sub
}

func catalogMessage(t *testing.T, eventID string) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(payloads.CatalogChangedEvent{
		Resource:   payloads.CatalogResourceFlavor,
		ResourceID: uuid.New(),
		ChangedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &gcppubsub.Message{
		ID:   "msg-1",
		Data: body,
		Attributes: map[string]string{
			"event_type":     string(enums.EventCatalogChanged),
			"aggregate_type": string(enums.AggregateCatalog),
			"aggregate_id":   uuid.NewString(),
		},
	}
}

func TestProcessHandlesOnce(t *testing.T) {
	manager := &stubManager{seen: map[string]bool{}}
	calls := 0
	sub := newSubscriber(t, manager, HandlerFunc(func(_ context.Context, event Event) error {
		calls++
		if _, ok := event.Payload.(*payloads.CatalogChangedEvent); !ok {
			t.Fatalf("unexpected payload type %T", event.Payload)
		}
		return nil
	}))

	msg := catalogMessage(t, "evt-1")
	if !sub.Process(context.Background(), msg) {
		t.Fatal("expected ack")
	}
	if !sub.Process(context.Background(), msg) {
		t.Fatal("expected ack for duplicate")
	}
	if calls != 1 {
		t.Fatalf("expected handler once, got %d", calls)
	}
}

func TestProcessReleasesKeyOnHandlerError(t *testing.T) {
	manager := &stubManager{seen: map[string]bool{}}
	sub := newSubscriber(t, manager, HandlerFunc(func(context.Context, Event) error {
		return errors.New("boom")
	}))

	if sub.Process(context.Background(), catalogMessage(t, "evt-2")) {
		t.Fatal("expected nack")
	}
	if len(manager.released) != 1 || manager.released[0] != "evt-2" {
		t.Fatalf("expected released key, got %v", manager.released)
	}
}

func TestProcessAcksMalformedAndFilteredMessages(t *testing.T) {
	manager := &stubManager{seen: map[string]bool{}}
	called := false
	sub := newSubscriber(t, manager, HandlerFunc(func(context.Context, Event) error {
		called = true
		return nil
	}), enums.EventOrderCreated)

	if !sub.Process(context.Background(), &gcppubsub.Message{Data: []byte("nope")}) {
		t.Fatal("expected ack for malformed message")
	}
	if !sub.Process(context.Background(), catalogMessage(t, "evt-3")) {
		t.Fatal("expected ack for filtered event")
	}
	if called {
		t.Fatal("handler must not run")
	}
	if len(manager.seen) != 0 {
		t.Fatal("filtered events must not be marked processed")
	}
}

func TestProcessNacksWhenIdempotencyFails(t *testing.T) {
	manager := &stubManager{seen: map[string]bool{}, err: errors.New("redis down")}
	sub := newSubscriber(t, manager, HandlerFunc(func(context.Context, Event) error { return nil }))
	if sub.Process(context.Background(), catalogMessage(t, "evt-4")) {
		t.Fatal("expected nack")
	}
}

func TestNewValidatesParams(t *testing.T) {
	if _, err := New(Params{}); err == nil {
		t.Fatal("expected error")
	}
}
