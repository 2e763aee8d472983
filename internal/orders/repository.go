package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/repo"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
)

// ErrStatusChanged is returned when an order left the expected status before the update landed.
var ErrStatusChanged = errors.New("order status changed concurrently")

// ListQuery filters the staff order listing.
type ListQuery struct {
	Status *enums.OrderStatus
	Cursor *pagination.Cursor
	Limit  int
}

// Repository persists orders and their items.
type Repository struct {
	repo.Base
}

// NewRepository builds an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts the order together with its items.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return r.Tx(ctx, tx).Create(order).Error
}

// FindByID loads an order with items in cart order.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns newest orders first, one row past the limit when more exist.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Order, error) {
	query := r.DB(ctx).Model(&models.Order{})
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	var rows []models.Order
	if err := pagination.Apply(query, q.Cursor, q.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus moves an order from one status to another. It reports
// ErrStatusChanged when the row is no longer in from.
func (r *Repository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.OrderStatus, at time.Time) error {
	res := r.Tx(ctx, tx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "status_changed_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

// MaxDisplayNumberSince returns the highest display number issued at or after since.
func (r *Repository) MaxDisplayNumberSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error) {
	var highest sql.NullInt64
	row := r.Tx(ctx, tx).Model(&models.Order{}).
		Where("created_at >= ?", since).
		Select("MAX(display_number)").
		Row()
	if err := row.Scan(&highest); err != nil {
		return 0, err
	}
	return highest.Int64, nil
}
