package enums

import "fmt"

// ProductCategory represents the non-pizza menu sections.
type ProductCategory string

const (
	ProductCategoryBeverage ProductCategory = "beverage"
	ProductCategoryDessert  ProductCategory = "dessert"
	ProductCategorySide     ProductCategory = "side"
)

var validProductCategories = []ProductCategory{
	ProductCategoryBeverage,
	ProductCategoryDessert,
	ProductCategorySide,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
