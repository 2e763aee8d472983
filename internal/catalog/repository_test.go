package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
)

func seedFlavor(t *testing.T, repo *Repository, name string, sortOrder int, available bool) *models.Flavor {
	t.Helper()
	row := &models.Flavor{
		Name:         name,
		Category:     enums.FlavorCategoryTraditional,
		PriceMedia:   decimal.RequireFromString("29.90"),
		PriceGrande:  decimal.RequireFromString("35.90"),
		PriceFamilia: decimal.RequireFromString("45.90"),
		Available:    available,
		SortOrder:    sortOrder,
	}
	require.NoError(t, repo.Create(context.Background(), row))
	return row
}

func TestRepositoryFetchAvailableFlavors(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	seedFlavor(t, repo, "Calabresa", 2, true)
	seedFlavor(t, repo, "Margherita", 1, true)
	seedFlavor(t, repo, "Atum", 0, false)

	flavors, err := repo.FetchAvailableFlavors(context.Background())
	require.NoError(t, err)
	require.Len(t, flavors, 2)
	require.Equal(t, "Margherita", flavors[0].Name)

	price, err := PriceFor(flavors[0], enums.SizeGrande)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.RequireFromString("35.90")))

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestServiceSetAvailabilityEmitsEventAndRefreshes(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	row := seedFlavor(t, repo, "Margherita", 1, true)

	acc, err := NewAccessor(repo, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, acc.Refresh(context.Background()))
	require.Len(t, acc.ListAvailable(), 1)

	svc, err := NewService(ServiceParams{
		DB:       client,
		Repo:     repo,
		Outbox:   outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop()),
		Accessor: acc,
	})
	require.NoError(t, err)

	updated, err := svc.SetAvailability(context.Background(), outbox.ActorRef{UserID: "staff-1", Role: "staff"}, row.ID, false)
	require.NoError(t, err)
	require.False(t, updated.Available)
	require.Empty(t, acc.ListAvailable())

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventCatalogChanged, events[0].EventType)
	require.Equal(t, row.ID, events[0].AggregateID)
}

func TestServiceSetAvailabilityNotFound(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	acc, err := NewAccessor(repo, logger.Nop())
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		DB:       client,
		Repo:     repo,
		Outbox:   outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop()),
		Accessor: acc,
	})
	require.NoError(t, err)

	_, err = svc.SetAvailability(context.Background(), outbox.ActorRef{}, uuid.New(), true)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRepositorySetAvailabilityMissingRow(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	err := repo.SetAvailability(context.Background(), nil, uuid.New(), true)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
