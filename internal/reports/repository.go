package reports

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pizzeria-backend/internal/repo"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
)

// Repository reads orders for aggregation and stores the daily rollup.
type Repository struct {
	repo.Base
}

// NewRepository builds a reports repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// OrdersBetween loads orders created in [from, to) with their items.
func (r *Repository) OrdersBetween(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.Tx(ctx, tx).
		Preload("Items").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertDay writes one rollup row, replacing an existing row for the same day.
func (r *Repository) UpsertDay(ctx context.Context, tx *gorm.DB, row *models.DailySales) error {
	return r.Tx(ctx, tx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"orders_count", "cancelled_count", "items_count",
			"subtotal", "delivery_fees", "total", "updated_at",
		}),
	}).Create(row).Error
}

// ListRange returns rollup rows for days in [from, to], oldest first.
func (r *Repository) ListRange(ctx context.Context, from, to time.Time) ([]models.DailySales, error) {
	var rows []models.DailySales
	err := r.DB(ctx).
		Where("day >= ? AND day <= ?", from, to).
		Order("day ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
