package models

import "github.com/golang-jwt/jwt/v5"

// Role tags issued by the identity provider.
const (
	RoleAdmin       = "admin"
	RoleAccountable = "accountable"
)

// RealmAccess mirrors the realm_access claim of a Keycloak-style token.
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// IdentityClaims is the JWT claim set the platform trusts as-is: an opaque
// subject plus a set of realm role tags.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email       string      `json:"email"`
	Fullname    string      `json:"name"`
	RealmAccess RealmAccess `json:"realm_access"`
}

// GetUserID returns the opaque user identity (the subject claim).
func (c *IdentityClaims) GetUserID() string {
	return c.Subject
}

// HasRole reports whether the token carries the given realm role.
func (c *IdentityClaims) HasRole(role string) bool {
	for _, r := range c.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}
