package cart

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/internal/sizes"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func soda() Product {
	return Product{
		ID:    uuid.MustParse("8a1d2b63-1e2f-4d2b-8b66-1c5e2d4f0001"),
		Name:  "Refrigerante",
		Price: dec("6.00"),
		Sizes: []ProductSize{
			{ID: "lata", Name: "Lata 350ml", Price: decimal.Zero},
			{ID: "2l", Name: "Garrafa 2L", Price: dec("8.00")},
		},
		Extras: []ProductExtra{
			{ID: "gelo", Name: "Gelo", Price: dec("0.50")},
			{ID: "limao", Name: "Limão", Price: dec("1.00")},
		},
	}
}

func grandePizza(quantity int) LineItem {
	size, _ := sizes.Lookup(enums.SizeGrande)
	return LineItem{
		ID:        uuid.NewString(),
		Kind:      enums.LineItemKindPizza,
		Name:      "Pizza Grande - Margherita, Calabresa",
		UnitPrice: dec("39.90"),
		Quantity:  quantity,
		Pizza: &PizzaSelection{
			Size: size,
			Flavors: []PizzaFlavor{
				{ID: uuid.New(), Name: "Margherita", Price: dec("35.90")},
				{ID: uuid.New(), Name: "Calabresa", Price: dec("39.90")},
			},
		},
	}
}

func TestAddSimpleItemMergesIdenticalConfigurations(t *testing.T) {
	s := NewStore()
	p := soda()
	big := p.Sizes[1]

	first := s.AddSimpleItem(p, &big, []ProductExtra{p.Extras[1], p.Extras[0]})
	second := s.AddSimpleItem(p, &big, []ProductExtra{p.Extras[0], p.Extras[1]})

	if first.ID != second.ID {
		t.Fatalf("expected same identity regardless of extra order: %s vs %s", first.ID, second.ID)
	}
	if len(s.Items()) != 1 {
		t.Fatalf("expected one line, got %d", len(s.Items()))
	}
	if second.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", second.Quantity)
	}
	want := p.ID.String() + "|2l|gelo,limao"
	if first.ID != want {
		t.Fatalf("expected identity %q, got %q", want, first.ID)
	}
	if !first.UnitPrice.Equal(dec("15.50")) {
		t.Fatalf("expected unit price 15.50, got %s", first.UnitPrice)
	}
	if first.Name != "Refrigerante (Garrafa 2L) + Limão, Gelo" {
		t.Fatalf("unexpected name %q", first.Name)
	}
}

func TestAddSimpleItemDistinctConfigurations(t *testing.T) {
	s := NewStore()
	p := soda()
	small := p.Sizes[0]

	plain := s.AddSimpleItem(p, nil, nil)
	sized := s.AddSimpleItem(p, &small, nil)

	if plain.ID != p.ID.String()+"|default|" {
		t.Fatalf("unexpected sentinel identity %q", plain.ID)
	}
	if plain.ID == sized.ID {
		t.Fatal("different sizes must not merge")
	}
	if s.TotalItems() != 2 {
		t.Fatalf("expected 2 items, got %d", s.TotalItems())
	}
}

func TestAddComposedPizzaNeverMerges(t *testing.T) {
	s := NewStore()
	item := grandePizza(1)
	s.AddComposedPizza(item)
	again := s.AddComposedPizza(item)

	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("expected two pizza lines, got %d", len(items))
	}
	if again.ID == item.ID {
		t.Fatal("colliding pizza id must be replaced")
	}
}

func TestUpdateQuantity(t *testing.T) {
	s := NewStore()
	line := s.AddSimpleItem(soda(), nil, nil)

	if !s.UpdateQuantity(line.ID, 7) {
		t.Fatal("expected line to exist")
	}
	if got, _ := s.Get(line.ID); got.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", got.Quantity)
	}

	if !s.UpdateQuantity(line.ID, 0) {
		t.Fatal("expected removal to report found")
	}
	if s.TotalItems() != 0 || !s.IsEmpty() {
		t.Fatal("quantity 0 must remove the line")
	}
	if s.UpdateQuantity("missing", 3) {
		t.Fatal("missing id must report false")
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	s := NewStore()
	s.AddSimpleItem(soda(), nil, nil)
	notified := 0
	s.Subscribe(func(Snapshot) { notified++ })

	if s.RemoveItem("nope") {
		t.Fatal("expected false for missing id")
	}
	if notified != 0 {
		t.Fatal("no-op must not notify")
	}
	if s.TotalItems() != 1 {
		t.Fatal("cart changed on no-op remove")
	}
}

func TestTotalsMatchWorkedExample(t *testing.T) {
	s := NewStore()
	s.AddComposedPizza(grandePizza(2))
	s.AddSimpleItem(Product{ID: uuid.New(), Name: "Guaraná", Price: dec("8.90")}, nil, nil)

	if !s.TotalPrice().Equal(dec("88.70")) {
		t.Fatalf("expected 88.70, got %s", s.TotalPrice())
	}
	if s.TotalItems() != 3 {
		t.Fatalf("expected 3 items, got %d", s.TotalItems())
	}
}

func TestTotalPriceAfterMixedOperations(t *testing.T) {
	s := NewStore()
	p := soda()
	a := s.AddSimpleItem(p, nil, nil)
	b := s.AddComposedPizza(grandePizza(1))
	s.AddSimpleItem(p, nil, nil)
	s.UpdateQuantity(b.ID, 3)
	c := s.AddSimpleItem(p, &p.Sizes[1], nil)
	s.RemoveItem(a.ID)

	want := decimal.Zero
	for _, item := range s.Items() {
		want = want.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !s.TotalPrice().Equal(want) {
		t.Fatalf("total %s != sum of lines %s", s.TotalPrice(), want)
	}
	items := s.Items()
	if len(items) != 2 || items[0].ID != b.ID || items[1].ID != c.ID {
		t.Fatalf("insertion order not preserved: %+v", items)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s := NewStore()
	s.AddSimpleItem(soda(), nil, nil)
	notified := 0
	s.Subscribe(func(Snapshot) { notified++ })

	s.Clear()
	s.Clear()
	if s.TotalItems() != 0 {
		t.Fatal("expected empty cart")
	}
	if notified != 1 {
		t.Fatalf("expected a single notification, got %d", notified)
	}
}

func TestObserversReceiveConsistentSnapshots(t *testing.T) {
	s := NewStore()
	var snaps []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })

	line := s.AddSimpleItem(soda(), nil, nil)
	s.UpdateQuantity(line.ID, 4)
	unsubscribe()
	s.Clear()

	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	last := snaps[1]
	if last.TotalItems != 4 || !last.TotalPrice.Equal(dec("24")) {
		t.Fatalf("unexpected snapshot %+v", last)
	}
	last.Items[0].Quantity = 99
	if got, _ := s.Get(line.ID); got.Quantity == 99 {
		t.Fatal("snapshot shares memory with the store")
	}
}

func TestConcurrentAddsAreAtomic(t *testing.T) {
	s := NewStore()
	p := soda()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddSimpleItem(p, nil, nil)
		}()
	}
	wg.Wait()
	if s.TotalItems() != 50 || len(s.Items()) != 1 {
		t.Fatalf("expected one line with 50, got %d lines / %d items", len(s.Items()), s.TotalItems())
	}
}

func TestRestoreSkipsInvalidLinesWithoutNotifying(t *testing.T) {
	s := NewStore()
	notified := 0
	s.Subscribe(func(Snapshot) { notified++ })

	good := grandePizza(2)
	bad := grandePizza(1)
	bad.Pizza = nil
	s.Restore([]LineItem{good, bad, good})

	if notified != 0 {
		t.Fatal("restore must not notify")
	}
	if len(s.Items()) != 1 || s.TotalItems() != 2 {
		t.Fatalf("unexpected restored items %+v", s.Items())
	}
}

func TestRemoveOrderedKeepsWhatWasNotOrdered(t *testing.T) {
	s := NewStore()
	p := soda()
	big := p.Sizes[1]
	pizza := s.AddComposedPizza(grandePizza(2))
	can := s.AddSimpleItem(p, nil, nil)
	s.AddSimpleItem(p, nil, nil)
	bottle := s.AddSimpleItem(p, &big, nil)

	var snaps []Snapshot
	s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })

	removed := s.RemoveOrdered(map[string]int{pizza.ID: 2, can.ID: 1, "gone": 4})

	if removed != 1 {
		t.Fatalf("expected one line removed, got %d", removed)
	}
	if _, ok := s.Get(pizza.ID); ok {
		t.Fatal("fully ordered pizza must leave the cart")
	}
	if got, _ := s.Get(can.ID); got.Quantity != 1 {
		t.Fatalf("expected one can left, got %d", got.Quantity)
	}
	if got, ok := s.Get(bottle.ID); !ok || got.Quantity != 1 {
		t.Fatalf("unordered line must stay untouched, got %+v", got)
	}
	items := s.Items()
	if len(items) != 2 || items[0].ID != can.ID || items[1].ID != bottle.ID {
		t.Fatalf("unexpected remaining order %+v", items)
	}
	if len(snaps) != 1 || snaps[0].TotalItems != 2 {
		t.Fatalf("expected a single notification with 2 items, got %+v", snaps)
	}

	if s.RemoveOrdered(map[string]int{"gone": 1}) != 0 || len(snaps) != 1 {
		t.Fatal("removing unknown lines must not notify")
	}
}
