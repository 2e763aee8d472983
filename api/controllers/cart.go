package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/api/responses"
	"github.com/angelmondragon/pizzeria-backend/api/validators"
	"github.com/angelmondragon/pizzeria-backend/internal/cart"
	"github.com/angelmondragon/pizzeria-backend/internal/products"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
)

type cartLine struct {
	cart.LineItem
	LineTotal decimal.Decimal `json:"line_total"`
}

func newCartLine(item cart.LineItem) cartLine {
	return cartLine{LineItem: item, LineTotal: item.LineTotal()}
}

type cartResponse struct {
	Items      []cartLine      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func newCartResponse(store *cart.Store) cartResponse {
	snap := store.Snapshot()
	lines := make([]cartLine, 0, len(snap.Items))
	for _, item := range snap.Items {
		lines = append(lines, newCartLine(item))
	}
	return cartResponse{Items: lines, TotalItems: snap.TotalItems, TotalPrice: snap.TotalPrice}
}

type addCartItemRequest struct {
	ProductID string   `json:"product_id" validate:"required,uuid"`
	SizeID    string   `json:"size_id"`
	ExtraIDs  []string `json:"extra_ids"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=99"`
}

func CartFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, newCartResponse(sess.Cart))
	}
}

// CartAddItem adds a simple product. Identical configurations merge into one line.
func CartAddItem(svc products.Service, m *metrics.StorefrontMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("invalid product", map[string]string{"product_id": "must be a valid uuid"}))
			return
		}
		sel, err := svc.Resolve(r.Context(), products.SelectionInput{
			ProductID: productID,
			SizeID:    strings.TrimSpace(body.SizeID),
			ExtraIDs:  body.ExtraIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line := sess.Cart.AddSimpleItem(sel.Product, sel.Size, sel.Extras)
		m.CartMutation("add_product")
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"item": newCartLine(line),
			"cart": newCartResponse(sess.Cart),
		})
	}
}

// CartUpdateItem sets a line quantity; zero removes the line and, like DELETE,
// succeeds when the line is already gone.
func CartUpdateItem(m *metrics.StorefrontMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id := chi.URLParam(r, "itemId")
		if body.Quantity <= 0 {
			// removal of an absent line is a no-op, same as DELETE
			if sess.Cart.RemoveItem(id) {
				m.CartMutation("remove")
			}
			responses.WriteSuccess(w, newCartResponse(sess.Cart))
			return
		}
		if !sess.Cart.UpdateQuantity(id, body.Quantity) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
			return
		}
		m.CartMutation("update_quantity")
		responses.WriteSuccess(w, newCartResponse(sess.Cart))
	}
}

// CartRemoveItem deletes a line. Unknown ids are a no-op.
func CartRemoveItem(m *metrics.StorefrontMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		if sess.Cart.RemoveItem(chi.URLParam(r, "itemId")) {
			m.CartMutation("remove")
		}
		responses.WriteSuccess(w, newCartResponse(sess.Cart))
	}
}

func CartClear(m *metrics.StorefrontMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		sess.Cart.Clear()
		m.CartMutation("clear")
		responses.WriteSuccess(w, newCartResponse(sess.Cart))
	}
}
