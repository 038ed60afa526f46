package repositories

import (
	"context"

	"participa/internal/domain/models"
)

// UserRepository defines data access for platform user profiles.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)

	// UpdateFields replaces a user's profile payload.
	UpdateFields(ctx context.Context, id string, fields models.Content) error

	// UpdateAvatar replaces a user's avatar reference.
	UpdateAvatar(ctx context.Context, id, avatar string) error

	// ListWithTagsField returns every user whose profile carries a tag
	// subscription list.
	ListWithTagsField(ctx context.Context) ([]models.User, error)

	// ListWithTag returns every user subscribed to tagID.
	ListWithTag(ctx context.Context, tagID string) ([]models.User, error)
}
