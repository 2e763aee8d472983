package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pizzeria-backend/internal/analytics"
	"github.com/angelmondragon/pizzeria-backend/pkg/bigquery"
	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/registry"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/subscriber"
	"github.com/angelmondragon/pizzeria-backend/pkg/pubsub"
	"github.com/angelmondragon/pizzeria-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "analytics-worker"

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.Eventing.UsesKafka() {
		requireResource(ctx, logg, "order events subscription", errors.New("analytics worker consumes Pub/Sub only; set PIZZERIA_EVENT_TRANSPORT=pubsub"))
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Requirements{
		Subscriptions: []string{cfg.PubSub.OrdersSubscription},
	}, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	subscription := pubsubClient.OrdersSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "orders subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.ConsumerDedupeTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	schema, err := analytics.OrderFactsSchema()
	requireResource(ctx, logg, "order facts schema", err)
	err = bqClient.EnsureTable(ctx, bigquery.TableSpec{
		Name:           bqClient.OrderFactsTable(),
		Schema:         schema,
		PartitionField: analytics.OrderFactsPartitionField,
	})
	requireResource(ctx, logg, "order facts table", err)

	writer, err := analytics.NewWriter(bqClient, bqClient.OrderFactsTable(), analytics.RetryPolicy{})
	requireResource(ctx, logg, "order facts writer", err)

	consumer, err := analytics.NewConsumer(writer, logg)
	requireResource(ctx, logg, "order facts consumer", err)

	service, err := subscriber.New(subscriber.Params{
		Name:         analytics.ConsumerName,
		Subscription: subscription,
		Decoders:     registry.NewPayloadDecoders(),
		Idempotency:  manager,
		Handler:      consumer,
		Events:       consumer.Events(),
		Logger:       logg,
	})
	requireResource(ctx, logg, "analytics subscriber", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"table":       bqClient.OrderFactsTable(),
	})
	logg.Info(runCtx, "analytics worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
