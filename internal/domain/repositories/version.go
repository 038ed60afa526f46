package repositories

import (
	"context"

	"participa/internal/domain/models"
)

// VersionRepository defines data access for the immutable version chain.
type VersionRepository interface {
	// Create appends a new version row.
	Create(ctx context.Context, v *models.Version) error

	// GetByID retrieves a version by its row id.
	GetByID(ctx context.Context, id string) (*models.Version, error)

	// GetByNumber is a point lookup of (document, version number). Absent
	// versions return ErrNotFound.
	GetByNumber(ctx context.Context, docID string, number int) (*models.Version, error)

	// ListByDocument returns every version of a document, oldest first.
	ListByDocument(ctx context.Context, docID string) ([]models.Version, error)

	// UpdateContent overwrites the content of a version row in place. Only
	// the current version of a document may be amended; callers enforce that.
	UpdateContent(ctx context.Context, id string, content models.Content) error

	// ListWithTag returns every version whose content tag list references
	// tagID, across all documents.
	ListWithTag(ctx context.Context, tagID string) ([]models.Version, error)
}
