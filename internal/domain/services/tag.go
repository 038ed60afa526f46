package services

import (
	"context"

	"participa/internal/domain/models"
)

// TagService owns the canonical tag catalog.
type TagService interface {
	// Create derives a slug key from name and inserts the tag, then
	// subscribes every user that carries a tag preference list. A key
	// collision fails with ErrConflict.
	Create(ctx context.Context, name string) (*models.DocumentTag, error)

	List(ctx context.Context) ([]models.DocumentTag, error)

	// Delete cascade-cleans the tag id from every user subscription list and
	// every version content tag list before removing the tag row. The
	// cascade is ordered (users, versions, tag) and not atomic: a failure
	// partway leaves stripped references with the tag still present, which
	// is recoverable by retrying.
	Delete(ctx context.Context, id string) error
}
