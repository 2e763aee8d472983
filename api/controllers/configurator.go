package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/api/responses"
	"github.com/angelmondragon/pizzeria-backend/api/validators"
	"github.com/angelmondragon/pizzeria-backend/internal/composer"
	"github.com/angelmondragon/pizzeria-backend/internal/sizes"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
)

type configuratorResponse struct {
	State        string             `json:"state"`
	Selection    composer.Selection `json:"selection"`
	Price        *decimal.Decimal   `json:"price,omitempty"`
	Total        *decimal.Decimal   `json:"total,omitempty"`
	CanAddFlavor bool               `json:"can_add_flavor"`
	CanAddToCart bool               `json:"can_add_to_cart"`
}

func newConfiguratorResponse(e *composer.Engine) configuratorResponse {
	v := e.View()
	resp := configuratorResponse{
		State:        v.State.String(),
		Selection:    v.Selection,
		CanAddFlavor: v.CanAddFlavor,
		CanAddToCart: v.CanAddToCart,
	}
	if v.PriceOK {
		resp.Price = &v.Price
	}
	if v.TotalOK {
		resp.Total = &v.Total
	}
	return resp
}

type chooseSizeRequest struct {
	SizeID string `json:"size_id" validate:"required,size"`
}

type addFlavorRequest struct {
	FlavorID string `json:"flavor_id" validate:"required,uuid"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"min=1,max=99"`
}

func ConfiguratorFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, newConfiguratorResponse(sess.Engine))
	}
}

// ConfiguratorChooseSize picks a size. Previously chosen flavors are dropped.
func ConfiguratorChooseSize(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		var body chooseSizeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		size, found := sizes.Lookup(enums.SizeID(body.SizeID))
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("unknown size", map[string]string{"size_id": "is invalid"}))
			return
		}
		sess.Engine.ChooseSize(size)
		responses.WriteSuccess(w, newConfiguratorResponse(sess.Engine))
	}
}

func ConfiguratorAddFlavor(flavors FlavorCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		var body addFlavorRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := uuid.Parse(body.FlavorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("invalid flavor", map[string]string{"flavor_id": "must be a valid uuid"}))
			return
		}
		flavor, found := flavors.Lookup(id)
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "flavor not available"))
			return
		}
		if !sess.Engine.AddFlavor(flavor) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "flavor cannot be added").
				WithDetails(newConfiguratorResponse(sess.Engine)))
			return
		}
		responses.WriteSuccess(w, newConfiguratorResponse(sess.Engine))
	}
}

func ConfiguratorRemoveFlavor(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		id, err := uuidParam(r, "flavorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !sess.Engine.RemoveFlavor(id) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "flavor not selected"))
			return
		}
		responses.WriteSuccess(w, newConfiguratorResponse(sess.Engine))
	}
}

func ConfiguratorSetQuantity(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		var body quantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Engine.SetQuantity(body.Quantity)
		responses.WriteSuccess(w, newConfiguratorResponse(sess.Engine))
	}
}

// ConfiguratorCommit moves the configured pizza into the cart as a new line.
func ConfiguratorCommit(m *metrics.StorefrontMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		item, committed := sess.Engine.Commit()
		if !committed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "choose a size and at least one flavor"))
			return
		}
		line := sess.Cart.AddComposedPizza(item)
		m.CartMutation("add_pizza")
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"item": newCartLine(line),
			"cart": newCartResponse(sess.Cart),
		})
	}
}

func ConfiguratorReset(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrError(w, r, logg)
		if !ok {
			return
		}
		sess.Engine.Reset()
		responses.WriteSuccess(w, newConfiguratorResponse(sess.Engine))
	}
}
