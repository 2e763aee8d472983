package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// Flavor is a pizza flavor with one price column per size. Column names follow
// the price_<size id> convention.
type Flavor struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name         string               `gorm:"column:name;not null"`
	Ingredients  string               `gorm:"column:ingredients;not null"`
	Category     enums.FlavorCategory `gorm:"column:category;type:text;not null"`
	PriceMedia   decimal.Decimal      `gorm:"column:price_media;type:numeric(10,2);not null"`
	PriceGrande  decimal.Decimal      `gorm:"column:price_grande;type:numeric(10,2);not null"`
	PriceFamilia decimal.Decimal      `gorm:"column:price_familia;type:numeric(10,2);not null"`
	Available    bool                 `gorm:"column:available;not null"`
	SortOrder    int                  `gorm:"column:sort_order;not null"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceColumns exposes the per-size prices keyed by column name.
func (f Flavor) PriceColumns() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"price_" + string(enums.SizeMedia):   f.PriceMedia,
		"price_" + string(enums.SizeGrande):  f.PriceGrande,
		"price_" + string(enums.SizeFamilia): f.PriceFamilia,
	}
}
