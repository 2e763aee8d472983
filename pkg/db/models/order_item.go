package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// OrderItemFlavor is a flavor snapshot inside a pizza line.
type OrderItemFlavor struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// OrderItemDetails keeps the structured selection needed to redisplay a line.
type OrderItemDetails struct {
	SizeID    string            `json:"size_id,omitempty"`
	SizeName  string            `json:"size_name,omitempty"`
	Flavors   []OrderItemFlavor `json:"flavors,omitempty"`
	ProductID string            `json:"product_id,omitempty"`
	Extras    []ProductOption   `json:"extras,omitempty"`
}

// OrderItem is the persisted snapshot of a cart line.
type OrderItem struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	Position  int                `gorm:"column:position;not null"`
	Kind      enums.LineItemKind `gorm:"column:kind;type:text;not null"`
	Name      string             `gorm:"column:name;not null"`
	Quantity  int                `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal    `gorm:"column:unit_price;type:numeric(10,2);not null"`
	LineTotal decimal.Decimal    `gorm:"column:line_total;type:numeric(10,2);not null"`
	Details   OrderItemDetails   `gorm:"column:details;type:jsonb;serializer:json"`
}
