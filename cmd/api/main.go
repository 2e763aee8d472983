package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/pizzeria-backend/api/controllers"
	"github.com/angelmondragon/pizzeria-backend/api/routes"
	"github.com/angelmondragon/pizzeria-backend/internal/catalog"
	"github.com/angelmondragon/pizzeria-backend/internal/orders"
	"github.com/angelmondragon/pizzeria-backend/internal/products"
	"github.com/angelmondragon/pizzeria-backend/internal/reports"
	"github.com/angelmondragon/pizzeria-backend/internal/sessions"
	"github.com/angelmondragon/pizzeria-backend/internal/stores"
	"github.com/angelmondragon/pizzeria-backend/internal/zones"
	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/instance"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
	"github.com/angelmondragon/pizzeria-backend/pkg/migrate"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/registry"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/subscriber"
	"github.com/angelmondragon/pizzeria-backend/pkg/pubsub"
	"github.com/angelmondragon/pizzeria-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefrontMetrics(promRegistry)

	reportZone, err := time.LoadLocation(cfg.Cron.ReportZone)
	if err != nil {
		return err
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	flavors, err := catalog.NewAccessor(catalogRepo, logg)
	if err != nil {
		return err
	}
	// A failed first load leaves the menu empty until the next poll or push.
	_ = flavors.Refresh(ctx)

	flavorAdmin, err := catalog.NewService(catalog.ServiceParams{
		DB:       dbClient,
		Repo:     catalogRepo,
		Outbox:   outboxSvc,
		Accessor: flavors,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	productSvc, err := products.NewService(products.ServiceParams{
		DB:     dbClient,
		Repo:   products.NewRepository(dbClient.DB()),
		Outbox: outboxSvc,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	zoneSvc, err := zones.NewService(zones.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return err
	}

	storeSvc, err := stores.NewService(stores.NewRepository(dbClient.DB()), redisClient, logg)
	if err != nil {
		return err
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderWriter, err := orders.NewWriter(orders.WriterParams{
		DB:        dbClient,
		Repo:      orderRepo,
		Sequencer: orders.NewSequencer(redisClient, reportZone),
		Outbox:    outboxSvc,
		Logger:    logg,
	})
	if err != nil {
		return err
	}
	assembler, err := orders.NewAssembler(zoneSvc, orderWriter, logg)
	if err != nil {
		return err
	}
	orderSvc, err := orders.NewService(orders.ServiceParams{
		DB:        dbClient,
		Repo:      orderRepo,
		Assembler: assembler,
		Store:     storeSvc,
		Outbox:    outboxSvc,
		Metrics:   storefrontMetrics,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	reportSvc, err := reports.NewService(dbClient, reports.NewRepository(dbClient.DB()), reportZone, logg)
	if err != nil {
		return err
	}

	sessionRegistry, err := sessions.NewRegistry(sessions.Params{
		Store:        redisClient,
		Catalog:      flavors,
		TTL:          cfg.Cart.TTL,
		IdleEviction: cfg.Cart.IdleEviction,
		Metrics:      storefrontMetrics,
		Logger:       logg,
	})
	if err != nil {
		return err
	}
	defer sessionRegistry.Close()

	ready := map[string]controllers.Pinger{"db": dbClient, "redis": redisClient}

	var catalogSubscriber *subscriber.Subscriber
	if cfg.FeatureFlags.CatalogPush && !cfg.Eventing.UsesKafka() {
		var psClient *pubsub.Client
		psClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Requirements{
			Subscriptions: []string{cfg.PubSub.CatalogSubscription},
		}, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, psClient.Close()) }()
		ready["pubsub"] = psClient

		catalogSubscriber, err = newCatalogSubscriber(cfg, logg, psClient, redisClient, flavors)
		if err != nil {
			return err
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     instance.GetID(),
		"catalog_push": catalogSubscriber != nil,
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			Ready:       ready,
			Idempotency: redisClient,
			Sessions:    sessionRegistry,
			Flavors:     flavors,
			FlavorAdmin: flavorAdmin,
			Products:    productSvc,
			Zones:       zoneSvc,
			Store:       storeSvc,
			Orders:      orderSvc,
			Reports:     reportSvc,
			Metrics:     storefrontMetrics,
			Gatherer:    promRegistry,
		}),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(logCtx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return sessionRegistry.Run(groupCtx)
	})
	group.Go(func() error {
		return flavors.Poll(groupCtx, cfg.Eventing.CatalogRefreshPeriod)
	})
	if catalogSubscriber != nil {
		group.Go(func() error {
			return catalogSubscriber.Run(groupCtx)
		})
	}

	return group.Wait()
}

// newCatalogSubscriber refreshes this instance's flavor snapshot on every
// catalog_changed event. Dedupe is scoped to the instance so each replica
// handles the event once.
func newCatalogSubscriber(cfg *config.Config, logg *logger.Logger, ps *pubsub.Client, store *redis.Client, flavors *catalog.Accessor) (*subscriber.Subscriber, error) {
	handler, err := catalog.NewConsumer(flavors, logg)
	if err != nil {
		return nil, err
	}
	dedupe, err := idempotency.NewManager(store, cfg.Eventing.ConsumerDedupeTTL)
	if err != nil {
		return nil, err
	}
	return subscriber.New(subscriber.Params{
		Name:         "catalog-refresh-" + instance.GetID(),
		Subscription: ps.CatalogSubscription(),
		Decoders:     registry.NewPayloadDecoders(),
		Idempotency:  dedupe,
		Handler:      handler,
		Events:       []enums.OutboxEventType{enums.EventCatalogChanged},
		Logger:       logg,
	})
}
