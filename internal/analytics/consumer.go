// Package analytics streams order facts into BigQuery from outbox events.
package analytics

import (
	"context"
	"fmt"
	"math/big"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/subscriber"
)

// ConsumerName keys the dedupe records of this consumer.
const ConsumerName = "analytics-order-facts"

// OrderFactRow is one row of the order facts table.
type OrderFactRow struct {
	EventID       string    `bigquery:"event_id"`
	OrderID       string    `bigquery:"order_id"`
	DisplayNumber int64     `bigquery:"display_number"`
	SessionID     string    `bigquery:"session_id"`
	UserID        string    `bigquery:"user_id"`
	ZoneID        string    `bigquery:"zone_id"`
	PaymentMethod string    `bigquery:"payment_method"`
	ItemCount     int64     `bigquery:"item_count"`
	PizzaCount    int64     `bigquery:"pizza_count"`
	Subtotal      *big.Rat  `bigquery:"subtotal"`
	DeliveryFee   *big.Rat  `bigquery:"delivery_fee"`
	Total         *big.Rat  `bigquery:"total"`
	CreatedAt     time.Time `bigquery:"created_at"`
	IngestedAt    time.Time `bigquery:"ingested_at"`
}

// OrderFactsPartitionField partitions the order facts table by order creation day.
const OrderFactsPartitionField = "created_at"

// OrderFactsSchema derives the table schema from OrderFactRow.
func OrderFactsSchema() (cbigquery.Schema, error) {
	return cbigquery.InferSchema(OrderFactRow{})
}

type rowWriter interface {
	Insert(ctx context.Context, rows ...any) error
}

// Consumer turns order_created events into order fact rows.
type Consumer struct {
	writer rowWriter
	logg   *logger.Logger
	now    func() time.Time
}

// NewConsumer builds the order facts consumer.
func NewConsumer(writer rowWriter, logg *logger.Logger) (*Consumer, error) {
	if writer == nil {
		return nil, fmt.Errorf("row writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{writer: writer, logg: logg, now: time.Now}, nil
}

// Events lists the event types this consumer handles.
func (c *Consumer) Events() []enums.OutboxEventType {
	return []enums.OutboxEventType{enums.EventOrderCreated}
}

// Handle writes the fact row. The event id doubles as the BigQuery insert id
// so a redelivered message does not produce a second row.
func (c *Consumer) Handle(ctx context.Context, event subscriber.Event) error {
	created, ok := event.Payload.(*payloads.OrderCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.EventType)
	}
	row := buildRow(event.EventID, created, c.now().UTC())
	saver := &cbigquery.StructSaver{Struct: row, InsertID: event.EventID}
	if err := c.writer.Insert(ctx, saver); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithOrderID(ctx, created.OrderID.String()), "order fact ingested")
	return nil
}

func buildRow(eventID string, e *payloads.OrderCreatedEvent, now time.Time) OrderFactRow {
	row := OrderFactRow{
		EventID:       eventID,
		OrderID:       e.OrderID.String(),
		DisplayNumber: e.DisplayNumber,
		SessionID:     e.SessionID,
		PaymentMethod: string(e.PaymentMethod),
		ItemCount:     int64(e.ItemCount),
		PizzaCount:    int64(e.PizzaCount),
		Subtotal:      numeric(e.Subtotal),
		DeliveryFee:   numeric(e.DeliveryFee),
		Total:         numeric(e.Total),
		CreatedAt:     e.CreatedAt,
		IngestedAt:    now,
	}
	if e.UserID != nil {
		row.UserID = *e.UserID
	}
	if e.ZoneID != nil {
		row.ZoneID = e.ZoneID.String()
	}
	return row
}

func numeric(d decimal.Decimal) *big.Rat {
	return d.Round(2).Rat()
}
