package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/repo"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
)

// Repository reads and updates the flavors table.
type Repository struct {
	repo.Base
}

// NewRepository builds a flavor repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FetchAvailableFlavors loads every available flavor in menu order.
func (r *Repository) FetchAvailableFlavors(ctx context.Context) ([]Flavor, error) {
	var rows []models.Flavor
	err := r.DB(ctx).
		Where("available = ?", true).
		Order("sort_order ASC").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Flavor, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

// ListAll returns every flavor, available or not, for the back office.
func (r *Repository) ListAll(ctx context.Context) ([]models.Flavor, error) {
	var rows []models.Flavor
	if err := r.DB(ctx).Order("sort_order ASC").Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads one flavor.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Flavor, error) {
	var row models.Flavor
	if err := r.Tx(ctx, tx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a flavor, assigning an id when missing.
func (r *Repository) Create(ctx context.Context, flavor *models.Flavor) error {
	if flavor.ID == uuid.Nil {
		flavor.ID = uuid.New()
	}
	return r.DB(ctx).Create(flavor).Error
}

// SetAvailability flips the available flag. Missing rows report gorm.ErrRecordNotFound.
func (r *Repository) SetAvailability(ctx context.Context, tx *gorm.DB, id uuid.UUID, available bool) error {
	res := r.Tx(ctx, tx).Model(&models.Flavor{}).Where("id = ?", id).Update("available", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
