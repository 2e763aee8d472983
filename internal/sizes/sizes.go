// Package sizes holds the fixed pizza size table.
package sizes

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// Size describes one orderable pizza size. Slices is informational; MaxFlavors
// bounds how many distinct flavors a pizza of this size may carry.
type Size struct {
	ID         enums.SizeID `json:"id"`
	Name       string       `json:"name"`
	Slices     int          `json:"slices"`
	MaxFlavors int          `json:"max_flavors"`
}

var table = []Size{
	{ID: enums.SizeMedia, Name: "Pizza Média", Slices: 6, MaxFlavors: 2},
	{ID: enums.SizeGrande, Name: "Pizza Grande", Slices: 8, MaxFlavors: 3},
	{ID: enums.SizeFamilia, Name: "Pizza Família", Slices: 12, MaxFlavors: 4},
}

// All returns the size table in display order.
func All() []Size {
	out := make([]Size, len(table))
	copy(out, table)
	return out
}

// Lookup finds a size by id.
func Lookup(id enums.SizeID) (Size, bool) {
	for _, s := range table {
		if s.ID == id {
			return s, true
		}
	}
	return Size{}, false
}

// Pricer returns a flavor's price at a size. ok is false when the flavor does
// not offer that size.
type Pricer interface {
	PriceAt(size enums.SizeID) (price decimal.Decimal, ok bool)
}

// MinPriceForSize returns the cheapest price at size among flavors, used for the
// "a partir de" label. It is zero when no flavor offers the size.
func MinPriceForSize[F Pricer](size Size, flavors []F) decimal.Decimal {
	var (
		lowest decimal.Decimal
		found  bool
	)
	for _, f := range flavors {
		price, ok := f.PriceAt(size.ID)
		if !ok {
			continue
		}
		if !found || price.LessThan(lowest) {
			lowest = price
			found = true
		}
	}
	if !found {
		return decimal.Zero
	}
	return lowest
}
