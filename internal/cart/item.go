package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/internal/sizes"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// PizzaFlavor is a flavor reference held by a pizza, with its price at the
// pizza's size captured when it was added.
type PizzaFlavor struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// PizzaSelection is the structured part of a pizza line item.
type PizzaSelection struct {
	Size    sizes.Size    `json:"size"`
	Flavors []PizzaFlavor `json:"flavors"`
}

// ProductSize is one size option of a simple product. Price is a surcharge.
type ProductSize struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ProductExtra is an add-on of a simple product.
type ProductExtra struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Product is the typed view of a simple menu product the cart prices from.
type Product struct {
	ID     uuid.UUID       `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Sizes  []ProductSize   `json:"sizes"`
	Extras []ProductExtra  `json:"extras"`
}

// ProductSelection is the structured part of a simple product line item.
type ProductSelection struct {
	ProductID uuid.UUID      `json:"product_id"`
	Size      *ProductSize   `json:"size,omitempty"`
	Extras    []ProductExtra `json:"extras,omitempty"`
}

// LineItem is a tagged variant: Kind selects which of Pizza or Product is set.
type LineItem struct {
	ID        string             `json:"id"`
	Kind      enums.LineItemKind `json:"kind"`
	Name      string             `json:"name"`
	UnitPrice decimal.Decimal    `json:"unit_price"`
	Quantity  int                `json:"quantity"`
	Pizza     *PizzaSelection    `json:"pizza,omitempty"`
	Product   *ProductSelection  `json:"product,omitempty"`
}

// LineTotal is UnitPrice times Quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Valid reports whether the variant tag matches the populated payload.
func (l LineItem) Valid() bool {
	if l.ID == "" || l.Quantity < 1 {
		return false
	}
	switch l.Kind {
	case enums.LineItemKindPizza:
		return l.Pizza != nil && l.Product == nil && len(l.Pizza.Flavors) > 0
	case enums.LineItemKindSimpleProduct:
		return l.Product != nil && l.Pizza == nil
	default:
		return false
	}
}

func cloneItem(l LineItem) LineItem {
	if l.Pizza != nil {
		p := *l.Pizza
		p.Flavors = append([]PizzaFlavor(nil), l.Pizza.Flavors...)
		l.Pizza = &p
	}
	if l.Product != nil {
		p := *l.Product
		if p.Size != nil {
			size := *p.Size
			p.Size = &size
		}
		p.Extras = append([]ProductExtra(nil), l.Product.Extras...)
		l.Product = &p
	}
	return l
}
