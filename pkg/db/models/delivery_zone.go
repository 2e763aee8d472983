package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryZone is a neighborhood with a flat delivery fee.
type DeliveryZone struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Neighborhood string          `gorm:"column:neighborhood;not null"`
	Fee          decimal.Decimal `gorm:"column:fee;type:numeric(10,2);not null"`
	Active       bool            `gorm:"column:active;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
