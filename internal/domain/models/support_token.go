package models

import "time"

// SupportTokenTTL is how long a validation token stays live. A second
// anonymous support request for the same email inside this window is
// rejected; after it, the stale token is replaced.
const SupportTokenTTL = 48 * time.Hour

// SupportToken is the double-opt-in credential for anonymous support: it
// proves control of an email address. One live token per email; consumed
// exactly once.
type SupportToken struct {
	ID          string    `json:"id" db:"id"`
	Document    string    `json:"document" db:"document"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Token       string    `json:"-" db:"token"` // opaque one-time secret, never serialized
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the token's validation window has passed.
func (t *SupportToken) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= SupportTokenTTL
}
