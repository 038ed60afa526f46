package repositories

import (
	"context"

	"participa/internal/domain/models"
)

// SupportTokenRepository defines data access for double-opt-in support
// tokens. At most one live token per email is expected; the duplicate check
// lives in the support service (a known check-then-act race, see the source).
type SupportTokenRepository interface {
	Create(ctx context.Context, t *models.SupportToken) error

	// GetByEmail returns the token for an email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.SupportToken, error)

	// GetByToken returns the token matching the opaque secret, or
	// ErrNotFound.
	GetByToken(ctx context.Context, token string) (*models.SupportToken, error)

	Delete(ctx context.Context, id string) error
}
