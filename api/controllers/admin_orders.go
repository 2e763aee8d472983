package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/pizzeria-backend/api/responses"
	"github.com/angelmondragon/pizzeria-backend/api/validators"
	"github.com/angelmondragon/pizzeria-backend/internal/orders"
	"github.com/angelmondragon/pizzeria-backend/internal/reports"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
)

type orderStatusRequest struct {
	Status string `json:"status" validate:"required,order_status"`
}

// AdminListOrders pages through orders newest first, optionally by ?status=.
func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := orders.ListInput{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("invalid status", map[string]string{"status": err.Error()}))
				return
			}
			input.Status = &status
		}
		result, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminGetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body orderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(body.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("invalid status", map[string]string{"status": err.Error()}))
			return
		}
		order, err := svc.UpdateStatus(r.Context(), staffActor(r), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminSalesReport reads the daily rollup for ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func AdminSalesReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		report, err := svc.SalesReport(r.Context(), strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
