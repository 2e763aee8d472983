package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

// Models lists every gorm model backed by a table. The SQL migrations stay the
// source of truth on Postgres; sqlite dev databases and tests use AutoMigrate.
func Models() []any {
	return []any{
		&models.Flavor{},
		&models.Product{},
		&models.DeliveryZone{},
		&models.StoreSetting{},
		&models.Order{},
		&models.OrderItem{},
		&models.DailySales{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})

	if client.Dialect() == db.DialectSQLite {
		logg.Info(ctx, "running gorm auto-migrate (sqlite dev mode)")
		if err := AutoMigrate(ctx, client); err != nil {
			return err
		}
		logg.Info(ctx, "auto-migrate completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, EmbeddedSource(), "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrate creates the tables from the gorm models and seeds the store settings row.
func AutoMigrate(ctx context.Context, client *db.Client) error {
	conn := client.DB().WithContext(ctx)
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	settings := models.StoreSetting{ID: models.StoreSettingsID}
	if err := conn.Where("id = ?", models.StoreSettingsID).FirstOrCreate(&settings).Error; err != nil {
		return fmt.Errorf("seed store settings: %w", err)
	}
	return nil
}
