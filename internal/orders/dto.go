package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// OrderItemDTO is a stored line as shown to staff.
type OrderItemDTO struct {
	Kind      enums.LineItemKind      `json:"kind"`
	Name      string                  `json:"name"`
	Quantity  int                     `json:"quantity"`
	UnitPrice decimal.Decimal         `json:"unit_price"`
	LineTotal decimal.Decimal         `json:"line_total"`
	Details   models.OrderItemDetails `json:"details"`
}

// OrderDTO is the staff view of an order.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	DisplayNumber   int64               `json:"display_number"`
	Status          enums.OrderStatus   `json:"status"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	Address         string              `json:"address"`
	ZoneID          *uuid.UUID          `json:"zone_id,omitempty"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	ChangeFor       *decimal.Decimal    `json:"change_for,omitempty"`
	Observations    *string             `json:"observations,omitempty"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	DeliveryFee     decimal.Decimal     `json:"delivery_fee"`
	Total           decimal.Decimal     `json:"total"`
	Items           []OrderItemDTO      `json:"items,omitempty"`
	StatusChangedAt time.Time           `json:"status_changed_at"`
	CreatedAt       time.Time           `json:"created_at"`
}

// ListResult is one page of orders.
type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// PlacedOrder is returned to the customer after checkout.
type PlacedOrder struct {
	OrderID       uuid.UUID       `json:"order_id"`
	DisplayNumber int64           `json:"display_number"`
	Total         decimal.Decimal `json:"total"`
}

func toDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		DisplayNumber:   order.DisplayNumber,
		Status:          order.Status,
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		Address:         order.Address,
		ZoneID:          order.ZoneID,
		PaymentMethod:   order.PaymentMethod,
		ChangeFor:       order.ChangeFor,
		Observations:    order.Observations,
		Subtotal:        order.Subtotal,
		DeliveryFee:     order.DeliveryFee,
		Total:           order.Total,
		StatusChangedAt: order.StatusChangedAt,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			Kind:      item.Kind,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
			Details:   item.Details,
		})
	}
	return dto
}
