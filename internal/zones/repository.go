package zones

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/repo"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
)

// Repository persists delivery zones.
type Repository struct {
	repo.Base
}

// NewRepository builds a zone repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListActive returns active zones sorted by neighborhood.
func (r *Repository) ListActive(ctx context.Context) ([]models.DeliveryZone, error) {
	var rows []models.DeliveryZone
	if err := r.DB(ctx).Where("active = ?", true).Order("neighborhood ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads one zone regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	var row models.DeliveryZone
	if err := r.DB(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a zone, assigning an id when missing.
func (r *Repository) Create(ctx context.Context, zone *models.DeliveryZone) error {
	if zone.ID == uuid.Nil {
		zone.ID = uuid.New()
	}
	return r.DB(ctx).Create(zone).Error
}

// Update persists every mutable column of zone.
func (r *Repository) Update(ctx context.Context, zone *models.DeliveryZone) error {
	return r.DB(ctx).Model(&models.DeliveryZone{}).Where("id = ?", zone.ID).Updates(map[string]any{
		"neighborhood": zone.Neighborhood,
		"fee":          zone.Fee,
		"active":       zone.Active,
	}).Error
}
