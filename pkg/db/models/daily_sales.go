package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySales is one row of the sales rollup, keyed by local calendar day.
type DailySales struct {
	Day            time.Time       `gorm:"column:day;type:date;primaryKey"`
	OrdersCount    int             `gorm:"column:orders_count;not null"`
	CancelledCount int             `gorm:"column:cancelled_count;not null"`
	ItemsCount     int             `gorm:"column:items_count;not null"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFees   decimal.Decimal `gorm:"column:delivery_fees;type:numeric(12,2);not null"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the rollup table name.
func (DailySales) TableName() string {
	return "daily_sales"
}
