package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// ErrInvalidSize is returned by PriceFor when the size id is not one of the known sizes.
var ErrInvalidSize = errors.New("invalid size")

// ErrPriceMissing is returned by PriceFor when a known size has no price on the flavor.
var ErrPriceMissing = errors.New("flavor has no price for size")

// Flavor is the read-only view of a flavor handed to the configurator.
// Prices is keyed by price column name ("price_" + size id).
type Flavor struct {
	ID          uuid.UUID                  `json:"id"`
	Name        string                     `json:"name"`
	Ingredients string                     `json:"ingredients"`
	Category    enums.FlavorCategory       `json:"category"`
	Prices      map[string]decimal.Decimal `json:"prices"`
	Available   bool                       `json:"available"`
}

// PriceKey builds the price column name for a size.
func PriceKey(size enums.SizeID) string {
	return "price_" + string(size)
}

// PriceFor returns the flavor's price at size.
func PriceFor(f Flavor, size enums.SizeID) (decimal.Decimal, error) {
	if !size.IsValid() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidSize, size)
	}
	price, ok := f.Prices[PriceKey(size)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s at %s", ErrPriceMissing, f.Name, size)
	}
	return price, nil
}

// PriceAt reports the price at size; ok is false when PriceFor would fail.
func (f Flavor) PriceAt(size enums.SizeID) (decimal.Decimal, bool) {
	price, err := PriceFor(f, size)
	return price, err == nil
}

// FromModel converts a stored flavor row.
func FromModel(m models.Flavor) Flavor {
	return Flavor{
		ID:          m.ID,
		Name:        m.Name,
		Ingredients: m.Ingredients,
		Category:    m.Category,
		Prices:      m.PriceColumns(),
		Available:   m.Available,
	}
}

func cloneFlavor(f Flavor) Flavor {
	prices := make(map[string]decimal.Decimal, len(f.Prices))
	for k, v := range f.Prices {
		prices[k] = v
	}
	f.Prices = prices
	return f
}
