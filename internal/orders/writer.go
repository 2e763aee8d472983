package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderStore interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	MaxDisplayNumberSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error)
}

type numberSource interface {
	Next(ctx context.Context, now time.Time) (int64, error)
	DayStart(now time.Time) time.Time
}

// WriterParams groups the order writer collaborators.
type WriterParams struct {
	DB        txRunner
	Repo      orderStore
	Sequencer numberSource
	Outbox    outbox.Emitter
	Logger    *logger.Logger
	Now       func() time.Time
}

// Writer stores orders and queues order_created in the same transaction.
type Writer struct {
	db     txRunner
	repo   orderStore
	seq    numberSource
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewWriter validates and wires the writer.
func NewWriter(p WriterParams) (*Writer, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if p.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if p.Sequencer == nil {
		return nil, fmt.Errorf("order sequencer required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Writer{db: p.DB, repo: p.Repo, seq: p.Sequencer, outbox: p.Outbox, logg: p.Logger, now: p.Now}, nil
}

// CreateOrder persists the payload as a pending order. When the counter store
// is unreachable the display number continues from the day's highest stored one.
func (w *Writer) CreateOrder(ctx context.Context, payload Payload) (*Created, error) {
	now := w.now().UTC()
	number, seqErr := w.seq.Next(ctx, now)

	order := buildOrder(payload, now)
	err := w.db.WithTx(ctx, func(tx *gorm.DB) error {
		if seqErr != nil {
			w.logg.Warn(w.logg.WithField(ctx, "error", seqErr.Error()), "order counter unavailable, numbering from database")
			highest, err := w.repo.MaxDisplayNumberSince(ctx, tx, w.seq.DayStart(now).UTC())
			if err != nil {
				return err
			}
			number = highest + 1
		}
		order.DisplayNumber = number
		if err := w.repo.Create(ctx, tx, order); err != nil {
			return err
		}
		return w.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(payload),
			OccurredAt:    now,
			Data:          orderCreatedEvent(order),
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := w.logg.WithOrderID(ctx, order.ID.String())
	w.logg.Info(w.logg.WithFields(logCtx, map[string]any{
		"display_number": order.DisplayNumber,
		"total":          order.Total.StringFixed(2),
	}), "order created")
	return &Created{OrderID: order.ID, DisplayNumber: order.DisplayNumber}, nil
}

func buildOrder(p Payload, now time.Time) *models.Order {
	order := &models.Order{
		ID:              uuid.New(),
		SessionID:       p.SessionID,
		UserID:          p.UserID,
		CustomerName:    p.Customer.Name,
		CustomerPhone:   p.Customer.Phone,
		Address:         p.Customer.Address,
		ZoneID:          p.ZoneID,
		PaymentMethod:   p.PaymentMethod,
		ChangeFor:       p.ChangeFor,
		Observations:    p.Observations,
		Subtotal:        p.Subtotal,
		DeliveryFee:     p.DeliveryFee,
		Total:           p.Total,
		Status:          enums.OrderStatusPending,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.Items = make([]models.OrderItem, 0, len(p.Items))
	for i, item := range p.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Position:  i,
			Kind:      item.Kind,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
			Details:   detailsFor(item),
		})
	}
	return order
}

func detailsFor(item PayloadItem) models.OrderItemDetails {
	details := models.OrderItemDetails{SizeID: item.SizeID, SizeName: item.SizeName}
	for _, f := range item.Flavors {
		details.Flavors = append(details.Flavors, models.OrderItemFlavor{ID: f.ID.String(), Name: f.Name, Price: f.Price})
	}
	if item.ProductID != nil {
		details.ProductID = item.ProductID.String()
	}
	for _, e := range item.Extras {
		details.Extras = append(details.Extras, models.ProductOption{ID: e.ID, Name: e.Name, Price: e.Price})
	}
	return details
}

func orderCreatedEvent(order *models.Order) payloads.OrderCreatedEvent {
	event := payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		DisplayNumber: order.DisplayNumber,
		SessionID:     order.SessionID,
		UserID:        order.UserID,
		ZoneID:        order.ZoneID,
		PaymentMethod: order.PaymentMethod,
		Subtotal:      order.Subtotal,
		DeliveryFee:   order.DeliveryFee,
		Total:         order.Total,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		event.ItemCount += item.Quantity
		if item.Kind == enums.LineItemKindPizza {
			event.PizzaCount += item.Quantity
		}
	}
	return event
}

func actorFor(p Payload) *outbox.ActorRef {
	actor := &outbox.ActorRef{SessionID: p.SessionID, Role: enums.UserRoleCustomer.String()}
	if p.UserID != nil {
		actor.UserID = *p.UserID
	}
	return actor
}

var _ Creator = (*Writer)(nil)
