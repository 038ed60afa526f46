// Package comment implements the comment and like subsystem.
package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
	"participa/internal/domain/services"
	"participa/internal/forms"
)

// DocumentCounter adjusts the envelope comment counter of a document. The
// document service implements it.
type DocumentCounter interface {
	AddComment(ctx context.Context, docID string) error
	SubtractComment(ctx context.Context, docID string) error
}

type commentService struct {
	comments  repositories.CommentRepository
	likes     repositories.LikeRepository
	docs      repositories.DocumentRepository
	versions  repositories.VersionRepository
	documents DocumentCounter
	forms     *forms.Registry
	notifier  services.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates the comment service.
func NewService(
	comments repositories.CommentRepository,
	likes repositories.LikeRepository,
	docs repositories.DocumentRepository,
	versions repositories.VersionRepository,
	documents DocumentCounter,
	registry *forms.Registry,
	notifier services.Notifier,
	logger *slog.Logger,
) services.CommentService {
	return &commentService{
		comments:  comments,
		likes:     likes,
		docs:      docs,
		versions:  versions,
		documents: documents,
		forms:     registry,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *commentService) Create(ctx context.Context, req *services.CreateCommentRequest) (*models.Comment, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Document, validation.Required),
		validation.Field(&req.Caller, validation.Required),
		validation.Field(&req.Field, validation.Required),
		validation.Field(&req.Content, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc, err := s.docs.GetByID(ctx, req.Document)
	if err != nil {
		return nil, err
	}
	current, err := s.versions.GetByID(ctx, doc.CurrentVersion)
	if err != nil {
		return nil, err
	}
	if current.Content.Closed(s.now()) {
		return nil, fmt.Errorf("%w: document %s no longer accepts comments", domain.ErrDocumentClosed, doc.ID)
	}

	form, ok := s.forms.Lookup(doc.CustomForm)
	if !ok {
		return nil, fmt.Errorf("%w: unknown custom form %q", domain.ErrValidation, doc.CustomForm)
	}
	if !form.Fields.AllowsCommentsOn(req.Field) {
		return nil, fmt.Errorf("%w: field %q does not accept comments", domain.ErrValidation, req.Field)
	}

	now := s.now().UTC()
	c := &models.Comment{
		ID:         uuid.NewString(),
		Document:   doc.ID,
		Version:    doc.CurrentVersion,
		User:       req.Caller,
		Field:      req.Field,
		Content:    req.Content,
		Decoration: req.Decoration,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if err := s.documents.AddComment(ctx, doc.ID); err != nil {
		s.logger.Warn("bump comment counter", "document", doc.ID, "error", err)
	}

	s.logger.Info("comment created", "comment", c.ID, "document", doc.ID, "field", c.Field)

	if req.Caller != doc.Author {
		s.notifier.Notify(ctx, services.KindCommentNew, map[string]string{
			"document": doc.ID,
			"comment":  c.ID,
			"author":   doc.Author,
			"field":    c.Field,
		})
	}
	return c, nil
}

func (s *commentService) ListByDocument(ctx context.Context, docID string, opts services.ListCommentsOptions, callerID string) ([]services.CommentView, error) {
	if len(opts.IDs) == 0 && opts.Field == "" {
		return nil, fmt.Errorf("%w: a field or an id list is required", domain.ErrValidation)
	}

	comments, err := s.comments.ListByDocument(ctx, docID, repositories.CommentFilter{
		IDs:   opts.IDs,
		Field: opts.Field,
	})
	if err != nil {
		return nil, fmt.Errorf("list comments of %s: %w", docID, err)
	}

	views := make([]services.CommentView, 0, len(comments))
	for i := range comments {
		view := services.CommentView{Comment: comments[i]}
		view.Likes, err = s.likes.CountByComment(ctx, comments[i].ID)
		if err != nil {
			return nil, fmt.Errorf("count likes of %s: %w", comments[i].ID, err)
		}
		if callerID != "" {
			switch _, err := s.likes.Get(ctx, callerID, comments[i].ID); {
			case err == nil:
				view.IsLiked = true
			case !errors.Is(err, domain.ErrNotFound):
				return nil, fmt.Errorf("look up like: %w", err)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// load fetches a comment and checks it belongs to the document in the URL.
func (s *commentService) load(ctx context.Context, docID, commentID string) (*models.Comment, *models.Document, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, nil, err
	}
	if c.Document != doc.ID {
		return nil, nil, fmt.Errorf("%w: comment %s is not on document %s", domain.ErrNotFound, commentID, docID)
	}
	return c, doc, nil
}

func (s *commentService) Resolve(ctx context.Context, docID, commentID, callerID string) (*models.Comment, error) {
	c, doc, err := s.load(ctx, docID, commentID)
	if err != nil {
		return nil, err
	}
	if callerID != doc.Author {
		return nil, fmt.Errorf("%w: only the document author resolves comments", domain.ErrForbidden)
	}

	resolved, err := s.comments.SetResolved(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, services.KindCommentResolved, map[string]string{
		"document": doc.ID,
		"comment":  c.ID,
		"user":     c.User,
	})
	return resolved, nil
}

func (s *commentService) Reply(ctx context.Context, docID, commentID, callerID, reply string) (*models.Comment, error) {
	if reply == "" {
		return nil, fmt.Errorf("%w: empty reply", domain.ErrValidation)
	}
	c, doc, err := s.load(ctx, docID, commentID)
	if err != nil {
		return nil, err
	}
	if callerID != doc.Author {
		return nil, fmt.Errorf("%w: only the document author replies to comments", domain.ErrForbidden)
	}

	replied, err := s.comments.SetReply(ctx, c.ID, reply)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, services.KindCommentReplied, map[string]string{
		"document": doc.ID,
		"comment":  c.ID,
		"user":     c.User,
	})
	return replied, nil
}

func (s *commentService) ToggleLike(ctx context.Context, docID, commentID, callerID string) (*models.Like, error) {
	if callerID == "" {
		return nil, fmt.Errorf("%w: missing user", domain.ErrUnauthorized)
	}
	c, _, err := s.load(ctx, docID, commentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.likes.Get(ctx, callerID, c.ID)
	switch {
	case err == nil:
		if err := s.likes.Delete(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("remove like: %w", err)
		}
		return nil, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("look up like: %w", err)
	}

	like := &models.Like{
		ID:        uuid.NewString(),
		User:      callerID,
		Comment:   c.ID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.likes.Create(ctx, like); err != nil {
		return nil, fmt.Errorf("create like: %w", err)
	}

	if callerID != c.User {
		s.notifier.Notify(ctx, services.KindCommentLiked, map[string]string{
			"comment": c.ID,
			"user":    c.User,
		})
	}
	return like, nil
}

func (s *commentService) Delete(ctx context.Context, docID, commentID, callerID string) error {
	c, doc, err := s.load(ctx, docID, commentID)
	if err != nil {
		return err
	}
	if callerID != c.User && callerID != doc.Author {
		return fmt.Errorf("%w: not the comment or document author", domain.ErrForbidden)
	}

	if err := s.comments.Delete(ctx, c.ID); err != nil {
		return err
	}
	if err := s.documents.SubtractComment(ctx, doc.ID); err != nil {
		s.logger.Warn("decrement comment counter", "document", doc.ID, "error", err)
	}
	return nil
}
