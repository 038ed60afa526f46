package services

import (
	"context"

	"participa/internal/domain/models"
)

// DocumentView is the read shape of a document: the envelope joined with its
// current version content plus derived fields. The raw support list is never
// part of it, only the count.
type DocumentView struct {
	models.Document
	Content     models.Content `json:"content"`
	Closed      bool           `json:"closed"`
	ApoyosCount int            `json:"apoyos_count"`
}

// ContributionStats are the derived contribution counters, computed across
// the whole version history on read.
type ContributionStats struct {
	ContributionsCount int `json:"contributions_count"`
	ContributorsCount  int `json:"contributors_count"`
}

// DocumentPayload is the full single-document response: the view plus
// caller-dependent and closed-only derived data.
type DocumentPayload struct {
	Document                *DocumentView      `json:"document"`
	IsAuthor                bool               `json:"is_author"`
	UserHasSupported        bool               `json:"user_has_supported"`
	RetrievedVersion        *models.Version    `json:"retrieved_version,omitempty"`
	ContributionStats       *ContributionStats `json:"contribution_stats,omitempty"`
	ContextualCommentsCount *int               `json:"contextual_comments_count,omitempty"`
}

// CreateDocumentRequest creates a document together with its version 1.
type CreateDocumentRequest struct {
	Author     string         `json:"-"`
	CustomForm string         `json:"custom_form"`
	Published  bool           `json:"published"`
	Content    models.Content `json:"content"`
}

// UpdateDocumentRequest patches a document. A non-empty Contributions list
// forks a new version merging Content over the current one; otherwise the
// current version is amended in place. Revision, when set, must match the
// revision the caller read or the update fails with ErrConflict.
type UpdateDocumentRequest struct {
	Caller        string         `json:"-"`
	Content       models.Content `json:"content"`
	Contributions []string       `json:"contributions"`
	Published     *bool          `json:"published"`
	Revision      *int           `json:"revision"`
}

// ListDocumentsOptions narrows and paginates document listings.
type ListDocumentsOptions struct {
	Page       int
	Limit      int
	Closed     *bool  // nil lists open first, then closed
	Tag        string // filter by tag id referenced from current content
	CreatedAsc bool
}

// Pagination describes one page of a listing.
type Pagination struct {
	Count int `json:"count"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

// DocumentPage is one page of document views.
type DocumentPage struct {
	Results    []DocumentView `json:"results"`
	Pagination Pagination     `json:"pagination"`
}

// DocumentService owns the document lifecycle: creation with version 1,
// amend-or-fork updates, derived closed state, comment counters and the
// support list.
type DocumentService interface {
	Create(ctx context.Context, req *CreateDocumentRequest) (*DocumentView, error)
	Update(ctx context.Context, docID string, req *UpdateDocumentRequest) (*DocumentView, error)

	// Get returns the document payload for callerID (empty for anonymous).
	// Drafts are only visible to their author.
	Get(ctx context.Context, docID, callerID string) (*DocumentPayload, error)

	// GetVersion additionally resolves one historical version by number.
	GetVersion(ctx context.Context, docID string, number int, callerID string) (*DocumentPayload, error)

	// List returns published documents.
	List(ctx context.Context, opts ListDocumentsOptions) (*DocumentPage, error)

	// ListMine returns every document of an author, drafts included.
	ListMine(ctx context.Context, author string, opts ListDocumentsOptions) (*DocumentPage, error)

	// AddComment and SubtractComment adjust the envelope comment counter.
	// The counter never goes negative: a decrement at zero is clamped.
	AddComment(ctx context.Context, docID string) error
	SubtractComment(ctx context.Context, docID string) error

	// Support appends an authenticated support, idempotent per user.
	Support(ctx context.Context, docID, userID string) error
}
