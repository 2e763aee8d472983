package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// OrderCreatedEvent is emitted in the same transaction that stores a new order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	DisplayNumber int64               `json:"display_number"`
	SessionID     string              `json:"session_id"`
	UserID        *string             `json:"user_id,omitempty"`
	ZoneID        *uuid.UUID          `json:"zone_id,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
	PizzaCount    int                 `json:"pizza_count"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	Total         decimal.Decimal     `json:"total"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderStatusChangedEvent is emitted when staff move an order through its lifecycle.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedBy string            `json:"changed_by,omitempty"`
	ChangedAt time.Time         `json:"changed_at"`
}

// CatalogResource names what part of the menu changed.
type CatalogResource string

const (
	CatalogResourceFlavor  CatalogResource = "flavor"
	CatalogResourceProduct CatalogResource = "product"
)

// CatalogChangedEvent tells API instances to refetch the menu.
type CatalogChangedEvent struct {
	Resource   CatalogResource `json:"resource"`
	ResourceID uuid.UUID       `json:"resource_id"`
	Available  bool            `json:"available"`
	ChangedAt  time.Time       `json:"changed_at"`
}
