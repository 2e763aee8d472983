package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/cart"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
)

// Service exposes the simple product menu and its staff toggles.
type Service interface {
	ListAvailable(ctx context.Context) ([]ProductDTO, error)
	Resolve(ctx context.Context, input SelectionInput) (*Selection, error)
	SetAvailability(ctx context.Context, actor outbox.ActorRef, id uuid.UUID, available bool) (*ProductDTO, error)
}

// SelectionInput is the raw cart request for a simple product.
type SelectionInput struct {
	ProductID uuid.UUID
	SizeID    string
	ExtraIDs  []string
}

// Selection is a validated product choice ready for cart.Store.AddSimpleItem.
type Selection struct {
	Product cart.Product
	Size    *cart.ProductSize
	Extras  []cart.ProductExtra
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productRepository interface {
	ListAvailable(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	SetAvailability(ctx context.Context, tx *gorm.DB, id uuid.UUID, available bool) error
}

// ServiceParams groups the service collaborators.
type ServiceParams struct {
	DB     txRunner
	Repo   productRepository
	Outbox outbox.Emitter
	Logger *logger.Logger
}

type service struct {
	db     txRunner
	repo   productRepository
	outbox outbox.Emitter
	logg   *logger.Logger
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{db: params.DB, repo: params.Repo, outbox: params.Outbox, logg: logg}, nil
}

func (s *service) ListAvailable(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

// Resolve checks that the product is on the menu and that the size and extras
// belong to it. Products that declare sizes require one; repeated extras collapse.
func (s *service) Resolve(ctx context.Context, input SelectionInput) (*Selection, error) {
	row, err := s.repo.FindByID(ctx, nil, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !row.Available {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is unavailable")
	}
	product := FromModel(*row)

	sel := &Selection{Product: product.CartProduct()}
	sizeID := strings.TrimSpace(input.SizeID)
	switch {
	case sizeID != "":
		for i := range product.Sizes {
			if product.Sizes[i].ID == sizeID {
				size := product.Sizes[i]
				sel.Size = &size
				break
			}
		}
		if sel.Size == nil {
			return nil, pkgerrors.Validation("invalid product selection", map[string]string{"size_id": "unknown size for product"})
		}
	case len(product.Sizes) > 0:
		return nil, pkgerrors.Validation("invalid product selection", map[string]string{"size_id": "size is required for this product"})
	}

	seen := make(map[string]struct{}, len(input.ExtraIDs))
	for _, raw := range input.ExtraIDs {
		id := strings.TrimSpace(raw)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		extra, ok := findExtra(product.Extras, id)
		if !ok {
			return nil, pkgerrors.Validation("invalid product selection", map[string]string{"extra_ids": fmt.Sprintf("unknown extra %q", id)})
		}
		sel.Extras = append(sel.Extras, extra)
	}
	return sel, nil
}

// SetAvailability toggles a product and queues a catalog_changed event in the
// same transaction.
func (s *service) SetAvailability(ctx context.Context, actor outbox.ActorRef, id uuid.UUID, available bool) (*ProductDTO, error) {
	var updated *models.Product
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.SetAvailability(ctx, tx, id, available); err != nil {
			return err
		}
		row, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = row
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCatalogChanged,
			AggregateType: enums.AggregateCatalog,
			AggregateID:   id,
			Actor:         &actor,
			Data: payloads.CatalogChangedEvent{
				Resource:   payloads.CatalogResourceProduct,
				ResourceID: id,
				Available:  available,
				ChangedAt:  time.Now().UTC(),
			},
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product availability")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"product_id": id.String(), "available": available}), "product availability updated")
	dto := FromModel(*updated)
	return &dto, nil
}

func findExtra(extras []cart.ProductExtra, id string) (cart.ProductExtra, bool) {
	for _, extra := range extras {
		if extra.ID == id {
			return extra, true
		}
	}
	return cart.ProductExtra{}, false
}
