package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderStatusChanged, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"to":"ready"}`)
	output, err := reg.Decode(enums.EventOrderStatusChanged, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["to"] != "ready" {
		t.Fatalf("unexpected output %+v", output)
	}
	if _, err := reg.Decode(enums.EventOrderStatusChanged, 2, input); err == nil {
		t.Fatal("expected unregistered version to fail")
	}
}

func TestDecodeMessageCatalogChanged(t *testing.T) {
	reg := NewPayloadDecoders()
	flavorID := uuid.New()
	data := mustEnvelope(t, mustMarshal(t, payloads.CatalogChangedEvent{
		Resource:   payloads.CatalogResourceFlavor,
		ResourceID: flavorID,
		Available:  false,
		ChangedAt:  time.Now().UTC(),
	}))

	envelope, payload, err := reg.DecodeMessage(enums.EventCatalogChanged, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.EventID == "" {
		t.Fatal("envelope event id missing")
	}
	event, ok := payload.(*payloads.CatalogChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", payload)
	}
	if event.ResourceID != flavorID || event.Available {
		t.Fatalf("payload mismatch %+v", event)
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	reg := NewPayloadDecoders()
	if _, _, err := reg.DecodeMessage(enums.EventOrderCreated, []byte("not-json")); err == nil {
		t.Fatal("expected envelope decode error")
	}
}
