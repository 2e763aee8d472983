package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/repo"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
)

// Repository reads and updates the products table.
type Repository struct {
	repo.Base
}

// NewRepository builds a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListAvailable returns available products grouped by category, then by name.
func (r *Repository) ListAvailable(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.DB(ctx).
		Where("available = ?", true).
		Order("category ASC").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads one product.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	if err := r.Tx(ctx, tx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a product, assigning an id when missing.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.DB(ctx).Create(product).Error
}

// SetAvailability flips the available flag. Missing rows report gorm.ErrRecordNotFound.
func (r *Repository) SetAvailability(ctx context.Context, tx *gorm.DB, id uuid.UUID, available bool) error {
	res := r.Tx(ctx, tx).Model(&models.Product{}).Where("id = ?", id).Update("available", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
