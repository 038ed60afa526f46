package repositories

import (
	"context"

	"participa/internal/domain/models"
)

// TagRepository defines data access for document tags.
type TagRepository interface {
	// Create inserts a tag; a duplicate key fails with ErrConflict.
	Create(ctx context.Context, t *models.DocumentTag) error
	GetByID(ctx context.Context, id string) (*models.DocumentTag, error)

	// List returns all tags ordered by name.
	List(ctx context.Context) ([]models.DocumentTag, error)
	Delete(ctx context.Context, id string) error
}
