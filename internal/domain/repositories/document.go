package repositories

import (
	"context"

	"participa/internal/domain/models"
)

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Author        string // only documents by this author
	PublishedOnly bool
}

// DocumentRepository defines data access for the document envelope. The
// store guarantees atomic single-row read-modify-write; cross-row
// consistency (version chain, counters) is the service layer's concern.
type DocumentRepository interface {
	// Create inserts a new document row.
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document with its support list.
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// List retrieves documents matching the filter, newest first.
	List(ctx context.Context, filter DocumentFilter) ([]models.Document, error)

	// CountByAuthor counts documents owned by an author.
	CountByAuthor(ctx context.Context, author string) (int, error)

	// UpdateEnvelope persists envelope fields (published, publishedMailSent,
	// currentVersion). When doc.Revision is set to the revision the caller
	// read, the write fails with ErrConflict if the row has moved on since;
	// the stored revision is bumped on success.
	UpdateEnvelope(ctx context.Context, doc *models.Document) error

	// SetCurrentVersion repoints the document at a version row.
	SetCurrentVersion(ctx context.Context, docID, versionID string) error

	// AddCommentCount adjusts commentsCount by delta, clamped at zero.
	AddCommentCount(ctx context.Context, docID string, delta int) error

	// AppendSupport appends one support entry.
	AppendSupport(ctx context.Context, docID string, s models.Support) error

	// Delete removes a document row. Comments referencing it are kept
	// (soft-unsafe deletion, preserved from the source).
	Delete(ctx context.Context, id string) error
}
