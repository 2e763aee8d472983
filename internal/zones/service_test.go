package zones

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), nil)
	require.NoError(t, err)
	return svc
}

func TestCreateListAndFee(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	centro, err := svc.Create(ctx, CreateZoneInput{Neighborhood: " Centro ", Fee: decimal.RequireFromString("5.00")})
	require.NoError(t, err)
	require.Equal(t, "Centro", centro.Neighborhood)
	_, err = svc.Create(ctx, CreateZoneInput{Neighborhood: "Bela Vista", Fee: decimal.RequireFromString("8.50")})
	require.NoError(t, err)

	list, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Bela Vista", list[0].Neighborhood)

	fee, found, err := svc.FeeFor(ctx, centro.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, fee.Equal(decimal.RequireFromString("5.00")))
}

func TestFeeForUnknownOrInactiveZone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	fee, found, err := svc.FeeFor(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, found)
	require.True(t, fee.IsZero())

	zone, err := svc.Create(ctx, CreateZoneInput{Neighborhood: "Centro", Fee: decimal.RequireFromString("5.00")})
	require.NoError(t, err)
	inactive := false
	_, err = svc.Update(ctx, zone.ID, UpdateZoneInput{Active: &inactive})
	require.NoError(t, err)

	_, found, err = svc.FeeFor(ctx, zone.ID)
	require.NoError(t, err)
	require.False(t, found)
}

func TestUpdateValidatesFee(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	zone, err := svc.Create(ctx, CreateZoneInput{Neighborhood: "Centro", Fee: decimal.RequireFromString("5.00")})
	require.NoError(t, err)

	negative := decimal.RequireFromString("-1")
	_, err = svc.Update(ctx, zone.ID, UpdateZoneInput{Fee: &negative})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	fee := decimal.RequireFromString("7.00")
	updated, err := svc.Update(ctx, zone.ID, UpdateZoneInput{Fee: &fee})
	require.NoError(t, err)
	require.True(t, updated.Fee.Equal(fee))

	_, err = svc.Update(ctx, uuid.New(), UpdateZoneInput{Fee: &fee})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Create(ctx, CreateZoneInput{Neighborhood: "  "})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
