package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/api/middleware"
	"github.com/angelmondragon/pizzeria-backend/api/responses"
	"github.com/angelmondragon/pizzeria-backend/api/validators"
	"github.com/angelmondragon/pizzeria-backend/internal/catalog"
	"github.com/angelmondragon/pizzeria-backend/internal/products"
	"github.com/angelmondragon/pizzeria-backend/internal/stores"
	"github.com/angelmondragon/pizzeria-backend/internal/zones"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

type storeOpenRequest struct {
	Open *bool `json:"open" validate:"required"`
}

func AdminSetStoreOpen(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body storeOpenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.SetOpen(r.Context(), middleware.UserIDFromContext(r.Context()), *body.Open)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func AdminSetFlavorAvailability(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "flavorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body availabilityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flavor, err := svc.SetAvailability(r.Context(), staffActor(r), id, *body.Available)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, flavor)
	}
}

func AdminSetProductAvailability(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body availabilityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.SetAvailability(r.Context(), staffActor(r), id, *body.Available)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createZoneRequest struct {
	Neighborhood string          `json:"neighborhood" validate:"required,max=120"`
	Fee          decimal.Decimal `json:"fee" validate:"money"`
}

type updateZoneRequest struct {
	Neighborhood *string          `json:"neighborhood" validate:"omitempty,max=120"`
	Fee          *decimal.Decimal `json:"fee" validate:"omitempty,money"`
	Active       *bool            `json:"active"`
}

func AdminCreateZone(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createZoneRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		zone, err := svc.Create(r.Context(), zones.CreateZoneInput{
			Neighborhood: strings.TrimSpace(body.Neighborhood),
			Fee:          body.Fee,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, zone)
	}
}

func AdminUpdateZone(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "zoneId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateZoneRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Neighborhood == nil && body.Fee == nil && body.Active == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}
		zone, err := svc.Update(r.Context(), id, zones.UpdateZoneInput{
			Neighborhood: body.Neighborhood,
			Fee:          body.Fee,
			Active:       body.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, zone)
	}
}
