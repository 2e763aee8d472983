package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/api/responses"
	"github.com/angelmondragon/pizzeria-backend/internal/catalog"
	"github.com/angelmondragon/pizzeria-backend/internal/products"
	"github.com/angelmondragon/pizzeria-backend/internal/sizes"
	"github.com/angelmondragon/pizzeria-backend/internal/zones"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

// FlavorCatalog is the read side of the flavor accessor.
type FlavorCatalog interface {
	ListAvailable() []catalog.Flavor
	ByCategory(category enums.FlavorCategory) []catalog.Flavor
	Grouped() []catalog.CategoryGroup
	Lookup(id uuid.UUID) (catalog.Flavor, bool)
}

// StoreStatus reports whether the store takes orders.
type StoreStatus interface {
	IsOpen(ctx context.Context) (bool, error)
}

type sizeOption struct {
	sizes.Size
	FromPrice *decimal.Decimal `json:"from_price,omitempty"`
}

type menuResponse struct {
	StoreOpen bool                    `json:"store_open"`
	Sizes     []sizeOption            `json:"sizes"`
	Flavors   []catalog.CategoryGroup `json:"flavors"`
	Products  []products.ProductDTO   `json:"products"`
}

func sizeOptions(flavors []catalog.Flavor) []sizeOption {
	all := sizes.All()
	out := make([]sizeOption, 0, len(all))
	for _, size := range all {
		opt := sizeOption{Size: size}
		if lowest := sizes.MinPriceForSize(size, flavors); lowest.IsPositive() {
			opt.FromPrice = &lowest
		}
		out = append(out, opt)
	}
	return out
}

// Menu renders the whole storefront in one call.
func Menu(flavors FlavorCatalog, productSvc products.Service, store StoreStatus, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		open, err := store.IsOpen(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read store status"))
			return
		}
		items, err := productSvc.ListAvailable(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, menuResponse{
			StoreOpen: open,
			Sizes:     sizeOptions(flavors.ListAvailable()),
			Flavors:   flavors.Grouped(),
			Products:  items,
		})
	}
}

func Sizes(flavors FlavorCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, sizeOptions(flavors.ListAvailable()))
	}
}

// Flavors lists available flavors, optionally narrowed by ?category=.
func Flavors(flavors FlavorCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("category"))
		if raw == "" {
			responses.WriteSuccess(w, flavors.ListAvailable())
			return
		}
		category, err := enums.ParseFlavorCategory(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("invalid category", map[string]string{"category": err.Error()}))
			return
		}
		responses.WriteSuccess(w, flavors.ByCategory(category))
	}
}

func DeliveryZones(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
