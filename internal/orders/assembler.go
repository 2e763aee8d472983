// Package orders turns a session cart and checkout form into a submitted
// delivery order and tracks the order through the kitchen.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/internal/cart"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

// ErrSubmitInFlight is reported when a cart already has a submission running.
var ErrSubmitInFlight = errors.New("order submission already in progress")

// CustomerInfo is the contact block of the checkout form.
type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// DraftInput is the checkout form state.
type DraftInput struct {
	Customer      CustomerInfo
	ZoneID        *uuid.UUID
	PaymentMethod enums.PaymentMethod
	ChangeFor     *decimal.Decimal
	Observations  *string
}

// PayloadItem is a serialized cart line.
type PayloadItem struct {
	LineID    string              `json:"line_id"`
	Kind      enums.LineItemKind  `json:"kind"`
	Name      string              `json:"name"`
	Quantity  int                 `json:"quantity"`
	UnitPrice decimal.Decimal     `json:"unit_price"`
	LineTotal decimal.Decimal     `json:"line_total"`
	SizeID    string              `json:"size_id,omitempty"`
	SizeName  string              `json:"size_name,omitempty"`
	Flavors   []cart.PizzaFlavor  `json:"flavors,omitempty"`
	ProductID *uuid.UUID          `json:"product_id,omitempty"`
	Extras    []cart.ProductExtra `json:"extras,omitempty"`
}

// Payload is an immutable order ready for the order creator.
type Payload struct {
	SessionID     string              `json:"session_id"`
	UserID        *string             `json:"user_id,omitempty"`
	Customer      CustomerInfo        `json:"customer"`
	ZoneID        *uuid.UUID          `json:"zone_id,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ChangeFor     *decimal.Decimal    `json:"change_for,omitempty"`
	Observations  *string             `json:"observations,omitempty"`
	Items         []PayloadItem       `json:"items"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	Total         decimal.Decimal     `json:"total"`
}

// ValidationError lists the checkout fields that block submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("order draft invalid: %s", strings.Join(keys, ", "))
}

// Created identifies a stored order.
type Created struct {
	OrderID       uuid.UUID
	DisplayNumber int64
}

// Result is the outcome of Submit. Message is set only on failure.
type Result struct {
	OK            bool
	OrderID       uuid.UUID
	DisplayNumber int64
	Message       string
	Err           error
}

// Creator stores a payload as an order.
type Creator interface {
	CreateOrder(ctx context.Context, payload Payload) (*Created, error)
}

// FeeLookup resolves a delivery zone fee. found=false means the zone is unknown.
type FeeLookup interface {
	FeeFor(ctx context.Context, id uuid.UUID) (decimal.Decimal, bool, error)
}

// Assembler builds payloads from carts and submits them.
type Assembler struct {
	zones    FeeLookup
	creator  Creator
	logg     *logger.Logger
	inflight sync.Map
}

// NewAssembler wires the zone lookup and the order creator.
func NewAssembler(zones FeeLookup, creator Creator, logg *logger.Logger) (*Assembler, error) {
	if zones == nil {
		return nil, fmt.Errorf("zone lookup required")
	}
	if creator == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Assembler{zones: zones, creator: creator, logg: logg}, nil
}

// BuildPayload validates the draft against the cart and prices the order.
// Validation problems come back as *ValidationError. An unknown zone costs
// nothing to deliver to.
func (a *Assembler) BuildPayload(ctx context.Context, c *cart.Store, input DraftInput) (*Payload, error) {
	snap := c.Snapshot()
	customer := CustomerInfo{
		Name:    strings.TrimSpace(input.Customer.Name),
		Phone:   strings.TrimSpace(input.Customer.Phone),
		Address: strings.TrimSpace(input.Customer.Address),
	}

	fields := map[string]string{}
	if len(snap.Items) == 0 {
		fields["cart"] = "cart is empty"
	}
	if customer.Name == "" {
		fields["name"] = "required"
	}
	if customer.Phone == "" {
		fields["phone"] = "required"
	}
	if customer.Address == "" {
		fields["address"] = "required"
	}
	switch {
	case input.PaymentMethod == "":
		fields["payment_method"] = "required"
	case !input.PaymentMethod.IsValid():
		fields["payment_method"] = "unknown payment method"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	fee := decimal.Zero
	zoneID := input.ZoneID
	if zoneID != nil {
		zoneFee, found, err := a.zones.FeeFor(ctx, *zoneID)
		if err != nil {
			return nil, err
		}
		if found {
			fee = zoneFee
		} else {
			// Unknown zones are delivered for free and not referenced by the order.
			a.logg.Warn(a.logg.WithField(ctx, "zone_id", zoneID.String()), "unknown delivery zone, fee defaults to zero")
			zoneID = nil
		}
	}

	payload := &Payload{
		Customer:      customer,
		ZoneID:        zoneID,
		PaymentMethod: input.PaymentMethod,
		Observations:  trimOptional(input.Observations),
		Items:         make([]PayloadItem, 0, len(snap.Items)),
		Subtotal:      snap.TotalPrice,
		DeliveryFee:   fee,
		Total:         snap.TotalPrice.Add(fee),
	}
	if input.PaymentMethod == enums.PaymentMethodCash && input.ChangeFor != nil && input.ChangeFor.IsPositive() {
		if input.ChangeFor.LessThan(payload.Total) {
			return nil, &ValidationError{Fields: map[string]string{"change_for": "must cover the order total"}}
		}
		change := *input.ChangeFor
		payload.ChangeFor = &change
	}
	for _, item := range snap.Items {
		payload.Items = append(payload.Items, toPayloadItem(item))
	}
	return payload, nil
}

// Submit hands the payload to the creator. Only the ordered lines leave the
// cart, and only when the order was stored; anything added meanwhile stays. A
// second submit for the same cart while one is running is refused.
func (a *Assembler) Submit(ctx context.Context, c *cart.Store, payload Payload) Result {
	if _, busy := a.inflight.LoadOrStore(c, struct{}{}); busy {
		return Result{Message: ErrSubmitInFlight.Error(), Err: ErrSubmitInFlight}
	}
	defer a.inflight.Delete(c)

	created, err := a.creator.CreateOrder(ctx, payload)
	if err != nil {
		a.logg.Error(ctx, "order submission failed", err)
		return Result{Message: "We could not place your order. Please try again.", Err: err}
	}
	ordered := make(map[string]int, len(payload.Items))
	for _, item := range payload.Items {
		ordered[item.LineID] += item.Quantity
	}
	c.RemoveOrdered(ordered)
	return Result{OK: true, OrderID: created.OrderID, DisplayNumber: created.DisplayNumber}
}

func toPayloadItem(item cart.LineItem) PayloadItem {
	out := PayloadItem{
		LineID:    item.ID,
		Kind:      item.Kind,
		Name:      item.Name,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		LineTotal: item.LineTotal(),
	}
	switch {
	case item.Pizza != nil:
		out.SizeID = string(item.Pizza.Size.ID)
		out.SizeName = item.Pizza.Size.Name
		out.Flavors = append([]cart.PizzaFlavor(nil), item.Pizza.Flavors...)
	case item.Product != nil:
		id := item.Product.ProductID
		out.ProductID = &id
		if item.Product.Size != nil {
			out.SizeID = item.Product.Size.ID
			out.SizeName = item.Product.Size.Name
		}
		out.Extras = append([]cart.ProductExtra(nil), item.Product.Extras...)
	}
	return out
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
