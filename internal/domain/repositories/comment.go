package repositories

import (
	"context"

	"participa/internal/domain/models"
)

// CommentFilter narrows comment listings within a document.
type CommentFilter struct {
	IDs            []string // restrict to these comment ids
	Field          string   // restrict to one content field
	UnresolvedOnly bool
	DecoratedOnly  bool // only inline (contextual) comments
}

// CommentRepository defines data access for comments.
type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)

	// ListByDocument returns a document's comments matching the filter,
	// oldest first.
	ListByDocument(ctx context.Context, docID string, filter CommentFilter) ([]models.Comment, error)

	// ListByIDs resolves a set of comment ids across documents. Missing ids
	// are skipped, not an error.
	ListByIDs(ctx context.Context, ids []string) ([]models.Comment, error)

	// Count counts a document's comments matching the filter.
	Count(ctx context.Context, docID string, filter CommentFilter) (int, error)

	SetResolved(ctx context.Context, id string) (*models.Comment, error)
	SetReply(ctx context.Context, id, reply string) (*models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// LikeRepository defines data access for comment likes.
type LikeRepository interface {
	// Get returns the like for (user, comment), or ErrNotFound.
	Get(ctx context.Context, userID, commentID string) (*models.Like, error)
	Create(ctx context.Context, l *models.Like) error
	Delete(ctx context.Context, id string) error
	CountByComment(ctx context.Context, commentID string) (int, error)
}
