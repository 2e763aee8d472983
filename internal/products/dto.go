package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/internal/cart"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// ProductDTO is the menu view of a simple product.
type ProductDTO struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Description *string               `json:"description,omitempty"`
	Category    enums.ProductCategory `json:"category"`
	Price       decimal.Decimal       `json:"price"`
	Sizes       []cart.ProductSize    `json:"sizes"`
	Extras      []cart.ProductExtra   `json:"extras"`
	Available   bool                  `json:"available"`
}

// FromModel maps a product row to its menu view.
func FromModel(row models.Product) ProductDTO {
	return ProductDTO{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Category:    row.Category,
		Price:       row.Price,
		Sizes:       toSizes(row.Sizes),
		Extras:      toExtras(row.Extras),
		Available:   row.Available,
	}
}

// CartProduct is the typed product the cart prices from.
func (p ProductDTO) CartProduct() cart.Product {
	return cart.Product{
		ID:     p.ID,
		Name:   p.Name,
		Price:  p.Price,
		Sizes:  p.Sizes,
		Extras: p.Extras,
	}
}

func toSizes(options []models.ProductOption) []cart.ProductSize {
	out := make([]cart.ProductSize, 0, len(options))
	for _, opt := range options {
		out = append(out, cart.ProductSize{ID: opt.ID, Name: opt.Name, Price: opt.Price})
	}
	return out
}

func toExtras(options []models.ProductOption) []cart.ProductExtra {
	out := make([]cart.ProductExtra, 0, len(options))
	for _, opt := range options {
		out = append(out, cart.ProductExtra{ID: opt.ID, Name: opt.Name, Price: opt.Price})
	}
	return out
}
