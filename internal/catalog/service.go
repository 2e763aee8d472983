package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type flavorRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Flavor, error)
	SetAvailability(ctx context.Context, tx *gorm.DB, id uuid.UUID, available bool) error
}

type refresher interface {
	Refresh(ctx context.Context) error
}

// Service exposes staff operations on flavors.
type Service interface {
	SetAvailability(ctx context.Context, actor outbox.ActorRef, id uuid.UUID, available bool) (*Flavor, error)
}

// ServiceParams groups the service collaborators.
type ServiceParams struct {
	DB       txRunner
	Repo     flavorRepository
	Outbox   outbox.Emitter
	Accessor refresher
	Logger   *logger.Logger
}

type service struct {
	db       txRunner
	repo     flavorRepository
	outbox   outbox.Emitter
	accessor refresher
	logg     *logger.Logger
}

// NewService builds the staff flavor service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("flavor repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Accessor == nil {
		return nil, fmt.Errorf("flavor accessor required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		outbox:   params.Outbox,
		accessor: params.Accessor,
		logg:     logg,
	}, nil
}

// SetAvailability toggles a flavor and queues a catalog_changed event in the same
// transaction. The local accessor is refreshed right away; other instances pick
// the change up from the event.
func (s *service) SetAvailability(ctx context.Context, actor outbox.ActorRef, id uuid.UUID, available bool) (*Flavor, error) {
	var updated *models.Flavor
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
				Resource:   payloads.CatalogResourceFlavor,
				ResourceID: id,
				Available:  available,
				ChangedAt:  time.Now().UTC(),
			},
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "flavor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update flavor availability")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"flavor_id": id.String(), "available": available})
	if err := s.accessor.Refresh(ctx); err != nil {
		s.logg.Warn(logCtx, "local catalog refresh after availability change failed")
	}
	s.logg.Info(logCtx, "flavor availability updated")

	flavor := FromModel(*updated)
	return &flavor, nil
}
