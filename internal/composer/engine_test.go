package composer

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/internal/cart"
	"github.com/angelmondragon/pizzeria-backend/internal/catalog"
	"github.com/angelmondragon/pizzeria-backend/internal/sizes"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func flavor(name, media, grande, familia string) catalog.Flavor {
	return catalog.Flavor{
		ID:       uuid.New(),
		Name:     name,
		Category: enums.FlavorCategoryTraditional,
		Prices: map[string]decimal.Decimal{
			"price_media":   dec(media),
			"price_grande":  dec(grande),
			"price_familia": dec(familia),
		},
		Available: true,
	}
}

func mustSize(t *testing.T, id enums.SizeID) sizes.Size {
	t.Helper()
	size, ok := sizes.Lookup(id)
	if !ok {
		t.Fatalf("size %s missing", id)
	}
	return size
}

var (
	margherita = flavor("Margherita", "29.90", "35.90", "45.90")
	calabresa  = flavor("Calabresa", "32.90", "39.90", "49.90")
	portuguesa = flavor("Portuguesa", "36.90", "44.90", "55.90")
	queijos    = flavor("Quatro Queijos", "39.90", "48.90", "59.90")
)

func TestWorkedExample(t *testing.T) {
	e := New()
	e.ChooseSize(mustSize(t, enums.SizeGrande))
	if !e.AddFlavor(margherita) || !e.AddFlavor(calabresa) {
		t.Fatal("expected flavors to be accepted")
	}
	if !e.SetQuantity(2) {
		t.Fatal("expected quantity accepted")
	}

	price, ok := e.Price()
	if !ok || !price.Equal(dec("39.90")) {
		t.Fatalf("expected price 39.90, got %s (%v)", price, ok)
	}
	total, _ := e.Total()
	if !total.Equal(dec("79.80")) {
		t.Fatalf("expected total 79.80, got %s", total)
	}

	item, ok := e.Commit()
	if !ok {
		t.Fatal("expected commit")
	}
	if item.Name != "Pizza Grande - Margherita, Calabresa" {
		t.Fatalf("unexpected name %q", item.Name)
	}
	if item.Kind != enums.LineItemKindPizza || item.Quantity != 2 || !item.UnitPrice.Equal(dec("39.90")) {
		t.Fatalf("unexpected line item %+v", item)
	}
	if !item.LineTotal().Equal(dec("79.80")) {
		t.Fatalf("expected line total 79.80, got %s", item.LineTotal())
	}
	if _, err := uuid.Parse(item.ID); err != nil {
		t.Fatalf("expected uuid id, got %q", item.ID)
	}

	if e.State() != StateEmpty {
		t.Fatalf("expected reset to empty, got %s", e.State())
	}
	if sel := e.Selection(); sel.Quantity != 1 || sel.Size != nil || len(sel.Flavors) != 0 {
		t.Fatalf("expected fresh selection, got %+v", sel)
	}

	s := cart.NewStore()
	s.AddComposedPizza(item)
	s.AddSimpleItem(cart.Product{ID: uuid.New(), Name: "Guaraná", Price: dec("8.90")}, nil, nil)
	if !s.TotalPrice().Equal(dec("88.70")) {
		t.Fatalf("expected cart total 88.70, got %s", s.TotalPrice())
	}
}

func TestPriceIsHighestNeverSumOrAverage(t *testing.T) {
	for _, size := range sizes.All() {
		e := New()
		e.ChooseSize(size)
		candidates := []catalog.Flavor{margherita, queijos, calabresa, portuguesa}[:size.MaxFlavors]
		highest := decimal.Zero
		for _, f := range candidates {
			if !e.AddFlavor(f) {
				t.Fatalf("%s: flavor %s rejected", size.ID, f.Name)
			}
			p, _ := catalog.PriceFor(f, size.ID)
			highest = decimal.Max(highest, p)
		}
		price, ok := e.Price()
		if !ok || !price.Equal(highest) {
			t.Fatalf("%s: expected %s, got %s", size.ID, highest, price)
		}
	}
}

func TestAddFlavorRejectedAtCap(t *testing.T) {
	e := New()
	e.ChooseSize(mustSize(t, enums.SizeMedia))
	e.AddFlavor(margherita)
	e.AddFlavor(calabresa)

	if e.State() != StateFlavorCapReached || e.CanAddFlavor() {
		t.Fatalf("expected cap reached, got %s", e.State())
	}
	before := e.Selection()
	if e.AddFlavor(portuguesa) {
		t.Fatal("expected rejection at cap")
	}
	if after := e.Selection(); len(after.Flavors) != len(before.Flavors) {
		t.Fatal("selection changed after rejected add")
	}
}

func TestAddFlavorRejectsDuplicatesAndMissingSize(t *testing.T) {
	e := New()
	if e.AddFlavor(margherita) {
		t.Fatal("expected rejection without size")
	}
	e.ChooseSize(mustSize(t, enums.SizeFamilia))
	if !e.AddFlavor(margherita) {
		t.Fatal("expected first add")
	}
	if e.AddFlavor(margherita) {
		t.Fatal("expected duplicate rejected")
	}
	noPrice := flavor("Sem preço", "1", "1", "1")
	delete(noPrice.Prices, "price_familia")
	if e.AddFlavor(noPrice) {
		t.Fatal("expected flavor without a price at the size to be rejected")
	}
	if got := len(e.Selection().Flavors); got != 1 {
		t.Fatalf("expected 1 flavor, got %d", got)
	}
}

func TestChooseSizeAlwaysClearsFlavors(t *testing.T) {
	e := New()
	e.ChooseSize(mustSize(t, enums.SizeFamilia))
	e.AddFlavor(margherita)
	e.AddFlavor(calabresa)
	e.SetQuantity(3)

	e.ChooseSize(mustSize(t, enums.SizeFamilia))
	sel := e.Selection()
	if len(sel.Flavors) != 0 {
		t.Fatal("flavors must be cleared even when re-choosing the same size")
	}
	if sel.Quantity != 3 {
		t.Fatalf("quantity should survive a size change, got %d", sel.Quantity)
	}
	if e.State() != StateSizeChosen {
		t.Fatalf("expected size chosen, got %s", e.State())
	}
}

func TestRemoveLastFlavorKeepsSize(t *testing.T) {
	e := New()
	e.ChooseSize(mustSize(t, enums.SizeGrande))
	e.AddFlavor(margherita)

	if !e.RemoveFlavor(margherita.ID) {
		t.Fatal("expected removal")
	}
	if e.RemoveFlavor(margherita.ID) {
		t.Fatal("second removal must report false")
	}
	if e.CanAddToCart() {
		t.Fatal("cannot add to cart without flavors")
	}
	if e.State() != StateSizeChosen || e.Selection().Size == nil {
		t.Fatal("size must remain chosen")
	}
	if _, ok := e.Price(); ok {
		t.Fatal("price undefined without flavors")
	}
	if _, ok := e.Commit(); ok {
		t.Fatal("commit must be rejected")
	}
}

func TestQuantityNeverBelowOne(t *testing.T) {
	e := New()
	if e.SetQuantity(0) || e.SetQuantity(-2) {
		t.Fatal("expected rejection")
	}
	if e.Decrement() {
		t.Fatal("decrement at 1 must be rejected")
	}
	e.Increment()
	e.Increment()
	if !e.Decrement() {
		t.Fatal("expected decrement from 3")
	}
	if q := e.Selection().Quantity; q != 2 {
		t.Fatalf("expected 2, got %d", q)
	}
}

func TestCommitsProduceDistinctIDs(t *testing.T) {
	e := New()
	build := func() cart.LineItem {
		e.ChooseSize(mustSize(t, enums.SizeGrande))
		e.AddFlavor(margherita)
		item, ok := e.Commit()
		if !ok {
			t.Fatal("commit failed")
		}
		return item
	}
	if build().ID == build().ID {
		t.Fatal("identical pizzas must get distinct ids")
	}
}

func TestReconcilePurgesUnavailableAndRefreshesPrices(t *testing.T) {
	e := New()
	e.ChooseSize(mustSize(t, enums.SizeGrande))
	e.AddFlavor(margherita)
	e.AddFlavor(calabresa)
	e.AddFlavor(portuguesa)

	repriced := margherita
	repriced.Prices = map[string]decimal.Decimal{
		"price_media":   dec("30"),
		"price_grande":  dec("50.00"),
		"price_familia": dec("60"),
	}
	unavailable := calabresa
	unavailable.Available = false

	purged := e.Reconcile([]catalog.Flavor{repriced, unavailable})
	if len(purged) != 2 {
		t.Fatalf("expected 2 purged flavors, got %v", purged)
	}
	sel := e.Selection()
	if len(sel.Flavors) != 1 || sel.Flavors[0].ID != margherita.ID {
		t.Fatalf("unexpected remaining flavors %+v", sel.Flavors)
	}
	if price, _ := e.Price(); !price.Equal(dec("50.00")) {
		t.Fatalf("expected refreshed price 50.00, got %s", price)
	}
	if e.Reconcile(nil); e.CanAddToCart() {
		t.Fatal("empty catalog must purge everything")
	}
	if e.Selection().Size == nil {
		t.Fatal("reconcile must keep the size")
	}
}

func TestViewIsConsistentUnderConcurrentEdits(t *testing.T) {
	e := New()
	empty := e.View()
	if empty.State != StateEmpty || empty.PriceOK || empty.TotalOK || empty.CanAddFlavor || empty.CanAddToCart {
		t.Fatalf("unexpected empty view %+v", empty)
	}

	grande := mustSize(t, enums.SizeGrande)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			e.ChooseSize(grande)
			e.AddFlavor(margherita)
			e.SetQuantity(i%3 + 1)
			e.AddFlavor(portuguesa)
		}
	}()

	for i := 0; i < 500; i++ {
		v := e.View()
		withSize := v.Selection.Size != nil
		ready := withSize && len(v.Selection.Flavors) > 0
		if v.CanAddToCart != ready || v.PriceOK != ready || v.TotalOK != ready {
			t.Fatalf("flags disagree with selection: %+v", v)
		}
		if (v.State == StateEmpty) == withSize {
			t.Fatalf("state %s disagrees with selection %+v", v.State, v.Selection)
		}
		if v.TotalOK && !v.Total.Equal(v.Price.Mul(decimal.NewFromInt(int64(v.Selection.Quantity)))) {
			t.Fatalf("total %s is not price %s times %d", v.Total, v.Price, v.Selection.Quantity)
		}
	}
	wg.Wait()

	v := e.View()
	if !v.PriceOK || !v.Price.Equal(dec("44.90")) {
		t.Fatalf("expected grande price 44.90, got %s (%v)", v.Price, v.PriceOK)
	}
}
