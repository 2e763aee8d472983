package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// Order is a submitted delivery order.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	DisplayNumber   int64               `gorm:"column:display_number;not null"`
	SessionID       string              `gorm:"column:session_id;not null"`
	UserID          *string             `gorm:"column:user_id"`
	CustomerName    string              `gorm:"column:customer_name;not null"`
	CustomerPhone   string              `gorm:"column:customer_phone;not null"`
	Address         string              `gorm:"column:address;not null"`
	ZoneID          *uuid.UUID          `gorm:"column:zone_id;type:uuid"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	ChangeFor       *decimal.Decimal    `gorm:"column:change_for;type:numeric(10,2)"`
	Observations    *string             `gorm:"column:observations"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DeliveryFee     decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(10,2);not null"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	StatusChangedAt time.Time           `gorm:"column:status_changed_at;not null"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
