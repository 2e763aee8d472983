package models

import "time"

// StoreSettingsID is the primary key of the single store_settings row.
const StoreSettingsID = 1

// StoreSetting holds the pizzeria-wide toggles.
type StoreSetting struct {
	ID        int       `gorm:"column:id;primaryKey"`
	IsOpen    bool      `gorm:"column:is_open;not null"`
	UpdatedBy *string   `gorm:"column:updated_by"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
