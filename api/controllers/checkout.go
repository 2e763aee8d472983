package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/api/middleware"
	"github.com/angelmondragon/pizzeria-backend/api/responses"
	"github.com/angelmondragon/pizzeria-backend/api/validators"
	"github.com/angelmondragon/pizzeria-backend/internal/orders"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

const (
	maxNameLen         = 120
	maxPhoneLen        = 32
	maxAddressLen      = 255
	maxObservationsLen = 500
)

type prefillResponse struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
}

// CheckoutPrefill returns what the signed-in user already told the auth provider.
func CheckoutPrefill() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			responses.WriteSuccess(w, prefillResponse{})
			return
		}
		responses.WriteSuccess(w, prefillResponse{
			Authenticated: true,
			Name:          claims.Name,
			Phone:         claims.Phone,
		})
	}
}

type customerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Field checks happen in the assembler so every missing field is reported at once.
type placeOrderRequest struct {
	Customer      customerRequest  `json:"customer"`
	ZoneID        *uuid.UUID       `json:"zone_id"`
	PaymentMethod string           `json:"payment_method"`
	ChangeFor     *decimal.Decimal `json:"change_for" validate:"omitempty,money"`
	Observations  *string          `json:"observations"`
}

func (p placeOrderRequest) toDraft(r *http.Request) orders.DraftInput {
	customer := orders.CustomerInfo{
		Name:    validators.SanitizeString(p.Customer.Name, maxNameLen),
		Phone:   validators.SanitizeString(p.Customer.Phone, maxPhoneLen),
		Address: validators.SanitizeString(p.Customer.Address, maxAddressLen),
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		if customer.Name == "" {
			customer.Name = validators.SanitizeString(claims.Name, maxNameLen)
		}
		if customer.Phone == "" {
			customer.Phone = validators.SanitizeString(claims.Phone, maxPhoneLen)
		}
	}
	draft := orders.DraftInput{
		Customer:      customer,
		ZoneID:        p.ZoneID,
		PaymentMethod: enums.PaymentMethod(strings.ToLower(strings.TrimSpace(p.PaymentMethod))),
		ChangeFor:     p.ChangeFor,
	}
	if p.Observations != nil {
		if obs := validators.SanitizeString(*p.Observations, maxObservationsLen); obs != "" {
			draft.Observations = &obs
		}
	}
	return draft
}

// PlaceOrder submits the session cart. The cart is cleared only on success.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.PlaceOrderInput{
			SessionID: sess.ID,
			Cart:      sess.Cart,
			Draft:     body.toDraft(r),
		}
		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			input.UserID = &userID
		}

		placed, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, placed)
	}
}
