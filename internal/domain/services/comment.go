package services

import (
	"context"
	"encoding/json"

	"participa/internal/domain/models"
)

// CreateCommentRequest creates a comment on one content field of a document.
type CreateCommentRequest struct {
	Document   string          `json:"-"`
	Caller     string          `json:"-"`
	Field      string          `json:"field"`
	Content    string          `json:"content"`
	Decoration json.RawMessage `json:"decoration,omitempty"`
}

// CommentView is a comment joined with its like count and, for an
// authenticated caller, whether they liked it.
type CommentView struct {
	models.Comment
	Likes   int  `json:"likes"`
	IsLiked bool `json:"is_liked"`
}

// ListCommentsOptions narrows a document's comment listing. At least one of
// IDs or Field must be set.
type ListCommentsOptions struct {
	IDs   []string
	Field string
}

// CommentService owns comments and their likes.
type CommentService interface {
	// Create adds a comment on a commentable field of an open document and
	// bumps the document's comment counter.
	Create(ctx context.Context, req *CreateCommentRequest) (*models.Comment, error)

	ListByDocument(ctx context.Context, docID string, opts ListCommentsOptions, callerID string) ([]CommentView, error)

	// Resolve marks a comment resolved. Document author only.
	Resolve(ctx context.Context, docID, commentID, callerID string) (*models.Comment, error)

	// Reply sets the author's reply on a comment. Document author only.
	Reply(ctx context.Context, docID, commentID, callerID, reply string) (*models.Comment, error)

	// ToggleLike likes the comment, or removes the caller's existing like.
	// Returns the created like, or nil when the toggle removed one.
	ToggleLike(ctx context.Context, docID, commentID, callerID string) (*models.Like, error)

	// Delete removes a comment and decrements the document's counter.
	// Allowed for the comment author and the document author.
	Delete(ctx context.Context, docID, commentID, callerID string) error
}
