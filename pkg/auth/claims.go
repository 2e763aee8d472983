package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID string
	Name   string
	Phone  string
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT presented by customers and staff.
// The subject is the hosted auth provider's user id.
type AccessTokenClaims struct {
	Name  string         `json:"name,omitempty"`
	Phone string         `json:"phone,omitempty"`
	Role  enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *AccessTokenClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// IsStaff reports whether the token grants back-office access.
func (c *AccessTokenClaims) IsStaff() bool {
	return c != nil && c.Role == enums.UserRoleStaff
}
