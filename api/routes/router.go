package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pizzeria-backend/api/controllers"
	"github.com/angelmondragon/pizzeria-backend/api/middleware"
	"github.com/angelmondragon/pizzeria-backend/internal/catalog"
	"github.com/angelmondragon/pizzeria-backend/internal/orders"
	"github.com/angelmondragon/pizzeria-backend/internal/products"
	"github.com/angelmondragon/pizzeria-backend/internal/reports"
	"github.com/angelmondragon/pizzeria-backend/internal/stores"
	"github.com/angelmondragon/pizzeria-backend/internal/zones"
	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/pizzeria-backend/pkg/redis"
)

// Params wires the router to its services.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Ready       map[string]controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Sessions    middleware.SessionResolver
	Flavors     controllers.FlavorCatalog
	FlavorAdmin catalog.Service
	Products    products.Service
	Zones       zones.Service
	Store       stores.Service
	Orders      orders.Service
	Reports     reports.Service
	Metrics     *metrics.StorefrontMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Ready))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))

		r.Get("/menu", controllers.Menu(p.Flavors, p.Products, p.Store, logg))
		r.Get("/sizes", controllers.Sizes(p.Flavors))
		r.Get("/flavors", controllers.Flavors(p.Flavors, logg))
		r.Get("/delivery-zones", controllers.DeliveryZones(p.Zones, logg))
		r.Get("/checkout/prefill", controllers.CheckoutPrefill())

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(p.Sessions, logg))
			r.Use(middleware.Idempotency(p.Idempotency, logg))

			r.Route("/configurator", func(r chi.Router) {
				r.Get("/", controllers.ConfiguratorFetch(logg))
				r.Delete("/", controllers.ConfiguratorReset(logg))
				r.Put("/size", controllers.ConfiguratorChooseSize(logg))
				r.Post("/flavors", controllers.ConfiguratorAddFlavor(p.Flavors, logg))
				r.Delete("/flavors/{flavorId}", controllers.ConfiguratorRemoveFlavor(logg))
				r.Put("/quantity", controllers.ConfiguratorSetQuantity(logg))
				r.Post("/commit", controllers.ConfiguratorCommit(p.Metrics, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(logg))
				r.Delete("/", controllers.CartClear(p.Metrics, logg))
				r.Post("/items", controllers.CartAddItem(p.Products, p.Metrics, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(p.Metrics, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(p.Metrics, logg))
			})

			r.Post("/orders", controllers.PlaceOrder(p.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.RequireStaff(logg))
		r.Use(middleware.Idempotency(p.Idempotency, logg))

		r.Put("/store/open", controllers.AdminSetStoreOpen(p.Store, logg))
		r.Patch("/flavors/{flavorId}", controllers.AdminSetFlavorAvailability(p.FlavorAdmin, logg))
		r.Patch("/products/{productId}", controllers.AdminSetProductAvailability(p.Products, logg))
		r.Post("/delivery-zones", controllers.AdminCreateZone(p.Zones, logg))
		r.Patch("/delivery-zones/{zoneId}", controllers.AdminUpdateZone(p.Zones, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(p.Orders, logg))
			r.Get("/{orderId}", controllers.AdminGetOrder(p.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(p.Orders, logg))
		})
		r.Get("/reports/sales", controllers.AdminSalesReport(p.Reports, logg))
	})

	return r
}
