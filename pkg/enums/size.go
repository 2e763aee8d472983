package enums

import "fmt"

// SizeID identifies one of the fixed pizza sizes.
type SizeID string

const (
	SizeMedia   SizeID = "media"
	SizeGrande  SizeID = "grande"
	SizeFamilia SizeID = "familia"
)

var validSizeIDs = []SizeID{
	SizeMedia,
	SizeGrande,
	SizeFamilia,
}

// String implements fmt.Stringer.
func (s SizeID) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SizeID.
func (s SizeID) IsValid() bool {
	for _, candidate := range validSizeIDs {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSizeID converts raw input into a SizeID.
func ParseSizeID(value string) (SizeID, error) {
	for _, candidate := range validSizeIDs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid size %q", value)
}
