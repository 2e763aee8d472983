package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/internal/cart"
	"github.com/angelmondragon/pizzeria-backend/internal/catalog"
	"github.com/angelmondragon/pizzeria-backend/internal/sizes"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/redis"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	fail error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) CartKey(id string) string { return "pz:cart:" + id }

type feed struct {
	fn catalog.ReplaceFunc
}

func (f *feed) Subscribe(fn catalog.ReplaceFunc) func() {
	f.fn = fn
	return func() { f.fn = nil }
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newRegistry(t *testing.T, store snapshotStore, f *feed, c *clock) *Registry {
	t.Helper()
	p := Params{Store: store, TTL: 72 * time.Hour, IdleEviction: 30 * time.Minute}
	if f != nil {
		p.Catalog = f
	}
	if c != nil {
		p.Now = c.now
	}
	r, err := NewRegistry(p)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

var soda = cart.Product{ID: uuid.New(), Name: "Guaraná", Price: decimal.RequireFromString("8.90")}

func TestGetRejectsInvalidIDs(t *testing.T) {
	r := newRegistry(t, nil, nil, nil)
	for _, id := range []string{"", "short", "has space in it", "../../etc/passwd"} {
		if _, err := r.Get(context.Background(), id); err != ErrInvalidID {
			t.Fatalf("%q: expected ErrInvalidID, got %v", id, err)
		}
	}
	if !ValidID(NewID()) {
		t.Fatal("generated ids must be valid")
	}
}

func TestCartSurvivesAcrossRegistries(t *testing.T) {
	store := newMemStore()
	id := NewID()

	first := newRegistry(t, store, nil, nil)
	sess, err := first.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	sess.Cart.AddSimpleItem(soda, nil, nil)
	sess.Cart.AddSimpleItem(soda, nil, nil)
	if store.ttls["pz:cart:"+id] != 72*time.Hour {
		t.Fatalf("expected snapshot with cart ttl, got %v", store.ttls)
	}

	second := newRegistry(t, store, nil, nil)
	again, err := second.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Cart.TotalItems() != 2 || !again.Cart.TotalPrice().Equal(decimal.RequireFromString("17.80")) {
		t.Fatalf("expected rehydrated cart, got %+v", again.Cart.Snapshot())
	}

	again.Cart.Clear()
	if _, ok := store.data["pz:cart:"+id]; ok {
		t.Fatal("expected snapshot removed after clear")
	}
}

func TestGetPicksUpChangesFromAnotherInstance(t *testing.T) {
	store := newMemStore()
	id := NewID()
	ctx := context.Background()
	a := newRegistry(t, store, nil, nil)
	b := newRegistry(t, store, nil, nil)

	onA, err := a.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	onA.Cart.AddSimpleItem(soda, nil, nil)
	onA.Cart.AddSimpleItem(soda, nil, nil)

	onB, err := b.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	onB.Cart.Clear()
	coxinha := cart.Product{ID: uuid.New(), Name: "Coxinha", Price: decimal.RequireFromString("6.50")}
	onB.Cart.AddSimpleItem(coxinha, nil, nil)

	again, err := a.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	items := again.Cart.Items()
	if len(items) != 1 || items[0].Name != "Coxinha" {
		t.Fatalf("expected the cart written by the other instance, got %+v", items)
	}

	onB.Cart.Clear()
	again, _ = a.Get(ctx, id)
	if !again.Cart.IsEmpty() {
		t.Fatalf("expected cart cleared elsewhere to come back empty, got %+v", again.Cart.Items())
	}
}

func TestGetKeepsLocalCartWhenRedisFails(t *testing.T) {
	store := newMemStore()
	id := NewID()
	r := newRegistry(t, store, nil, nil)
	sess, _ := r.Get(context.Background(), id)
	sess.Cart.AddSimpleItem(soda, nil, nil)

	store.fail = errors.New("connection refused")
	again, err := r.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Cart.TotalItems() != 1 {
		t.Fatalf("expected in-memory cart kept, got %+v", again.Cart.Items())
	}
}

func TestGetReturnsSameSession(t *testing.T) {
	r := newRegistry(t, newMemStore(), nil, nil)
	id := NewID()
	a, _ := r.Get(context.Background(), id)
	b, _ := r.Get(context.Background(), id)
	if a != b {
		t.Fatal("expected one session per id")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", r.Len())
	}
}

func TestCorruptSnapshotIsDiscarded(t *testing.T) {
	store := newMemStore()
	id := NewID()
	store.data["pz:cart:"+id] = "{not json"

	r := newRegistry(t, store, nil, nil)
	sess, err := r.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !sess.Cart.IsEmpty() {
		t.Fatal("expected empty cart")
	}
	if _, ok := store.data["pz:cart:"+id]; ok {
		t.Fatal("expected corrupt snapshot deleted")
	}
}

func TestEvictIdle(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	r := newRegistry(t, newMemStore(), nil, c)
	stale, fresh := NewID(), NewID()
	if _, err := r.Get(context.Background(), stale); err != nil {
		t.Fatal(err)
	}
	c.t = c.t.Add(20 * time.Minute)
	if _, err := r.Get(context.Background(), fresh); err != nil {
		t.Fatal(err)
	}
	c.t = c.t.Add(15 * time.Minute)

	if n := r.EvictIdle(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if r.Len() != 1 {
		t.Fatalf("expected fresh session kept, got %d", r.Len())
	}
}

func TestCatalogReplacementReconcilesEngines(t *testing.T) {
	f := &feed{}
	r := newRegistry(t, nil, f, nil)
	sess, err := r.Get(context.Background(), NewID())
	if err != nil {
		t.Fatal(err)
	}
	grande, _ := sizes.Lookup(enums.SizeGrande)
	margherita := catalog.Flavor{
		ID:        uuid.New(),
		Name:      "Margherita",
		Category:  enums.FlavorCategoryTraditional,
		Prices:    map[string]decimal.Decimal{"price_grande": decimal.RequireFromString("35.90")},
		Available: true,
	}
	sess.Engine.ChooseSize(grande)
	if !sess.Engine.AddFlavor(margherita) {
		t.Fatal("expected flavor accepted")
	}

	f.fn(nil)
	if len(sess.Engine.Selection().Flavors) != 0 {
		t.Fatal("expected removed flavor purged from the configurator")
	}

	r.Close()
	if f.fn != nil {
		t.Fatal("expected catalog subscription released")
	}
}
