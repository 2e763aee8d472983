package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
)

type fakeCounters struct {
	values map[string]int64
	err    error
}

func (f *fakeCounters) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.values[key]++
	return f.values[key], nil
}

func (f *fakeCounters) CounterKey(name string) string { return "pz:counter:" + name }

type fakeStoreStatus struct{ open bool }

func (f fakeStoreStatus) IsOpen(context.Context) (bool, error) { return f.open, nil }

type harness struct {
	client   *db.Client
	repo     *Repository
	counters *fakeCounters
	svc      Service
}

func newHarness(t *testing.T, open bool) *harness {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop())
	counters := &fakeCounters{values: map[string]int64{}}

	writer, err := NewWriter(WriterParams{
		DB:        client,
		Repo:      repo,
		Sequencer: NewSequencer(counters, time.UTC),
		Outbox:    emitter,
	})
	require.NoError(t, err)
	assembler, err := NewAssembler(fakeZones{}, writer, nil)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		DB:        client,
		Repo:      repo,
		Assembler: assembler,
		Store:     fakeStoreStatus{open: open},
		Outbox:    emitter,
		Metrics:   metrics.NewStorefrontMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return &harness{client: client, repo: repo, counters: counters, svc: svc}
}

func TestPlaceOrderPersistsOrderAndEvent(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	c := exampleCart(t)

	placed, err := h.svc.PlaceOrder(ctx, PlaceOrderInput{SessionID: "sess-1", Cart: c, Draft: validDraft()})
	require.NoError(t, err)
	require.Equal(t, int64(1), placed.DisplayNumber)
	require.True(t, placed.Total.Equal(dec("88.70")))
	require.True(t, c.IsEmpty())

	order, err := h.svc.Get(ctx, placed.OrderID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	require.Equal(t, "Pizza Grande - Margherita, Calabresa", order.Items[0].Name)
	require.Len(t, order.Items[0].Details.Flavors, 2)

	var events []models.OutboxEvent
	require.NoError(t, h.client.DB().Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventOrderCreated, events[0].EventType)
	require.Equal(t, placed.OrderID, events[0].AggregateID)

	second, err := h.svc.PlaceOrder(ctx, PlaceOrderInput{SessionID: "sess-1", Cart: exampleCart(t), Draft: validDraft()})
	require.NoError(t, err)
	require.Equal(t, int64(2), second.DisplayNumber)
}

func TestPlaceOrderStoreClosed(t *testing.T) {
	h := newHarness(t, false)
	c := exampleCart(t)

	_, err := h.svc.PlaceOrder(context.Background(), PlaceOrderInput{SessionID: "s", Cart: c, Draft: validDraft()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, 3, c.TotalItems())
}

func TestPlaceOrderValidationFailure(t *testing.T) {
	h := newHarness(t, true)
	draft := validDraft()
	draft.Customer.Phone = ""

	_, err := h.svc.PlaceOrder(context.Background(), PlaceOrderInput{SessionID: "s", Cart: exampleCart(t), Draft: draft})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Contains(t, details, "phone")
}

func TestPlaceOrderFallsBackToDatabaseNumbering(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	_, err := h.svc.PlaceOrder(ctx, PlaceOrderInput{SessionID: "s", Cart: exampleCart(t), Draft: validDraft()})
	require.NoError(t, err)

	h.counters.err = errors.New("redis unavailable")
	placed, err := h.svc.PlaceOrder(ctx, PlaceOrderInput{SessionID: "s", Cart: exampleCart(t), Draft: validDraft()})
	require.NoError(t, err)
	require.Equal(t, int64(2), placed.DisplayNumber)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	placed, err := h.svc.PlaceOrder(ctx, PlaceOrderInput{SessionID: "s", Cart: exampleCart(t), Draft: validDraft()})
	require.NoError(t, err)
	staff := outbox.ActorRef{UserID: "staff-1", Role: enums.UserRoleStaff.String()}

	_, err = h.svc.UpdateStatus(ctx, staff, placed.OrderID, enums.OrderStatusReady)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	updated, err := h.svc.UpdateStatus(ctx, staff, placed.OrderID, enums.OrderStatusPreparing)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPreparing, updated.Status)

	_, err = h.svc.UpdateStatus(ctx, staff, placed.OrderID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	_, err = h.svc.UpdateStatus(ctx, staff, placed.OrderID, enums.OrderStatusPreparing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var count int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderStatusChanged).Count(&count).Error)
	require.Equal(t, int64(2), count)

	_, err = h.svc.UpdateStatus(ctx, staff, uuid.New(), enums.OrderStatusPreparing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPaginatesNewestFirst(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		placed, err := h.svc.PlaceOrder(ctx, PlaceOrderInput{SessionID: "s", Cart: exampleCart(t), Draft: validDraft()})
		require.NoError(t, err)
		ids = append(ids, placed.OrderID)
		time.Sleep(2 * time.Millisecond)
	}

	page, err := h.svc.List(ctx, ListInput{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.Equal(t, ids[2], page.Orders[0].ID)
	require.NotEmpty(t, page.NextCursor)

	rest, err := h.svc.List(ctx, ListInput{Params: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	require.Equal(t, ids[0], rest.Orders[0].ID)
	require.Empty(t, rest.NextCursor)

	pending := enums.OrderStatusPreparing
	filtered, err := h.svc.List(ctx, ListInput{Status: &pending})
	require.NoError(t, err)
	require.Empty(t, filtered.Orders)

	_, err = h.svc.List(ctx, ListInput{Params: pagination.Params{Cursor: "%%%"}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
