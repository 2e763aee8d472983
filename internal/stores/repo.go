package stores

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/repo"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
)

// Repository reads and writes the single store_settings row.
type Repository struct {
	repo.Base
}

// NewRepository builds a store settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Get loads the settings row.
func (r *Repository) Get(ctx context.Context) (*models.StoreSetting, error) {
	var row models.StoreSetting
	if err := r.DB(ctx).Where("id = ?", models.StoreSettingsID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// SetOpen updates the open flag, creating the row when it is missing.
func (r *Repository) SetOpen(ctx context.Context, open bool, updatedBy *string) (*models.StoreSetting, error) {
	row := models.StoreSetting{ID: models.StoreSettingsID}
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.FirstOrCreate(&row, models.StoreSetting{ID: models.StoreSettingsID}).Error; err != nil {
			return err
		}
		row.IsOpen = open
		row.UpdatedBy = updatedBy
		row.UpdatedAt = time.Now().UTC()
		return tx.Model(&models.StoreSetting{}).Where("id = ?", models.StoreSettingsID).Updates(map[string]any{
			"is_open":    open,
			"updated_by": updatedBy,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}
