package catalog

import (
	"context"
	"errors"

	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/subscriber"
)

// Consumer refreshes the local snapshot when another instance changes the menu.
type Consumer struct {
	accessor refresher
	logg     *logger.Logger
}

// NewConsumer builds the catalog_changed handler.
func NewConsumer(accessor refresher, logg *logger.Logger) (*Consumer, error) {
	if accessor == nil {
		return nil, errors.New("flavor accessor required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Consumer{accessor: accessor, logg: logg}, nil
}

// Handle implements subscriber.Handler. A failed refresh nacks the message so
// Pub/Sub redelivers it.
func (c *Consumer) Handle(ctx context.Context, event subscriber.Event) error {
	if changed, ok := event.Payload.(*payloads.CatalogChangedEvent); ok {
		ctx = c.logg.WithFields(ctx, map[string]any{
			"resource":    changed.Resource,
			"resource_id": changed.ResourceID.String(),
		})
	}
	if err := c.accessor.Refresh(ctx); err != nil {
		return err
	}
	c.logg.Info(ctx, "catalog refreshed from push")
	return nil
}
