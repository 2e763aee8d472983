package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/cart"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
)

// Service exposes checkout and the staff order workflow.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlacedOrder, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor outbox.ActorRef, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

// PlaceOrderInput carries the session cart and checkout form.
type PlaceOrderInput struct {
	SessionID string
	UserID    *string
	Cart      *cart.Store
	Draft     DraftInput
}

// ListInput filters the staff listing.
type ListInput struct {
	Status *enums.OrderStatus
	pagination.Params
}

type storeStatus interface {
	IsOpen(ctx context.Context) (bool, error)
}

type orderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, q ListQuery) ([]models.Order, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.OrderStatus, at time.Time) error
}

// ServiceParams groups the order service collaborators.
type ServiceParams struct {
	DB        txRunner
	Repo      orderReader
	Assembler *Assembler
	Store     storeStatus
	Outbox    outbox.Emitter
	Metrics   *metrics.StorefrontMetrics
	Logger    *logger.Logger
}

type service struct {
	db        txRunner
	repo      orderReader
	assembler *Assembler
	store     storeStatus
	outbox    outbox.Emitter
	metrics   *metrics.StorefrontMetrics
	logg      *logger.Logger
}

// NewService builds the order service.
func NewService(p ServiceParams) (Service, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if p.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if p.Assembler == nil {
		return nil, fmt.Errorf("order assembler required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("store status required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &service{
		db:        p.DB,
		repo:      p.Repo,
		assembler: p.Assembler,
		store:     p.Store,
		outbox:    p.Outbox,
		metrics:   p.Metrics,
		logg:      p.Logger,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlacedOrder, error) {
	if input.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session cart missing")
	}
	open, err := s.store.IsOpen(ctx)
	if err != nil {
		s.metrics.OrderSubmitted(metrics.OrderResultFailed, decimal.Zero)
		return nil, err
	}
	if !open {
		s.metrics.OrderSubmitted(metrics.OrderResultStoreClose, decimal.Zero)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "the pizzeria is closed")
	}

	payload, err := s.assembler.BuildPayload(ctx, input.Cart, input.Draft)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.metrics.OrderSubmitted(metrics.OrderResultRejected, decimal.Zero)
			return nil, pkgerrors.Validation("order draft invalid", verr.Fields)
		}
		s.metrics.OrderSubmitted(metrics.OrderResultFailed, decimal.Zero)
		return nil, err
	}
	payload.SessionID = input.SessionID
	payload.UserID = input.UserID

	result := s.assembler.Submit(ctx, input.Cart, *payload)
	if !result.OK {
		if errors.Is(result.Err, ErrSubmitInFlight) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, result.Message)
		}
		s.metrics.OrderSubmitted(metrics.OrderResultFailed, decimal.Zero)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Err, result.Message)
	}
	s.metrics.OrderSubmitted(metrics.OrderResultAccepted, payload.Total)
	return &PlacedOrder{OrderID: result.OrderID, DisplayNumber: result.DisplayNumber, Total: payload.Total}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("invalid cursor", map[string]string{"cursor": err.Error()})
	}
	rows, err := s.repo.List(ctx, ListQuery{Status: input.Status, Cursor: cursor, Limit: input.Limit})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page, next := pagination.Trim(rows, input.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := &ListResult{Orders: make([]OrderDTO, 0, len(page)), NextCursor: next}
	for _, row := range page {
		out.Orders = append(out.Orders, toDTO(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*row)
	return &dto, nil
}

// UpdateStatus advances an order one step or cancels it, queueing
// order_status_changed in the same transaction.
func (s *service) UpdateStatus(ctx context.Context, actor outbox.ActorRef, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := row.Status
	if !from.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
			WithDetails(map[string]any{"from": from, "to": status})
	}

	now := time.Now().UTC()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateStatus(ctx, tx, id, from, status, now); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			Actor:         &actor,
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   id,
				From:      from,
				To:        status,
				ChangedBy: actor.UserID,
				ChangedAt: now,
			},
		})
	})
	if err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed, reload and retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, id.String()), map[string]any{
		"from": from,
		"to":   status,
	}), "order status updated")

	row.Status = status
	row.StatusChangedAt = now
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return row, nil
}
