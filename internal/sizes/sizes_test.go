package sizes

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

type priced map[enums.SizeID]string

func (p priced) PriceAt(size enums.SizeID) (decimal.Decimal, bool) {
	v, ok := p[size]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.RequireFromString(v), true
}

func TestAllReturnsFixedOrderedTable(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("expected 3 sizes, got %d", len(all))
	}
	want := []Size{
		{ID: enums.SizeMedia, Name: "Pizza Média", Slices: 6, MaxFlavors: 2},
		{ID: enums.SizeGrande, Name: "Pizza Grande", Slices: 8, MaxFlavors: 3},
		{ID: enums.SizeFamilia, Name: "Pizza Família", Slices: 12, MaxFlavors: 4},
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("size %d: expected %+v, got %+v", i, want[i], all[i])
		}
	}

	all[0].MaxFlavors = 99
	if All()[0].MaxFlavors != 2 {
		t.Fatal("All must return a copy")
	}
}

func TestLookup(t *testing.T) {
	size, ok := Lookup(enums.SizeGrande)
	if !ok || size.MaxFlavors != 3 {
		t.Fatalf("unexpected lookup result %+v %v", size, ok)
	}
	if _, ok := Lookup("gigante"); ok {
		t.Fatal("unknown size must not resolve")
	}
}

func TestMinPriceForSize(t *testing.T) {
	grande, _ := Lookup(enums.SizeGrande)
	flavors := []priced{
		{enums.SizeGrande: "39.90", enums.SizeMedia: "20"},
		{enums.SizeGrande: "35.90"},
		{enums.SizeMedia: "10"},
	}
	if got := MinPriceForSize(grande, flavors); !got.Equal(decimal.RequireFromString("35.90")) {
		t.Fatalf("expected 35.90, got %s", got)
	}

	familia, _ := Lookup(enums.SizeFamilia)
	if got := MinPriceForSize(familia, flavors); !got.IsZero() {
		t.Fatalf("expected zero when no flavor offers the size, got %s", got)
	}
	if got := MinPriceForSize(grande, []priced{}); !got.IsZero() {
		t.Fatalf("expected zero for empty list, got %s", got)
	}
}
