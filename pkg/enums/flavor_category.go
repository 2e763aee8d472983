package enums

import "fmt"

// FlavorCategory groups flavors on the menu. Declaration order is display order.
type FlavorCategory string

const (
	FlavorCategoryTraditional FlavorCategory = "traditional"
	FlavorCategorySpecial     FlavorCategory = "special"
	FlavorCategoryPremium     FlavorCategory = "premium"
	FlavorCategorySweet       FlavorCategory = "sweet"
)

var validFlavorCategories = []FlavorCategory{
	FlavorCategoryTraditional,
	FlavorCategorySpecial,
	FlavorCategoryPremium,
	FlavorCategorySweet,
}

// FlavorCategories returns every category in display order.
func FlavorCategories() []FlavorCategory {
	out := make([]FlavorCategory, len(validFlavorCategories))
	copy(out, validFlavorCategories)
	return out
}

// String implements fmt.Stringer.
func (c FlavorCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known FlavorCategory.
func (c FlavorCategory) IsValid() bool {
	for _, candidate := range validFlavorCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseFlavorCategory converts raw input into a FlavorCategory.
func ParseFlavorCategory(value string) (FlavorCategory, error) {
	for _, candidate := range validFlavorCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid flavor category %q", value)
}
