// Package document implements the document lifecycle: creation with version
// 1, amend-or-fork updates over the immutable version chain, derived closed
// state, the envelope comment counter and the support list.
package document

import (
	"context"
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

type documentService struct {
	docs      repositories.DocumentRepository
	versions  repositories.VersionRepository
	comments  repositories.CommentRepository
	txManager repositories.TransactionManager
	forms     *forms.Registry
	store     *VersionStore
	tracker   *ContributionTracker
	notifier  services.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates the document service.
func NewService(
	docs repositories.DocumentRepository,
	versions repositories.VersionRepository,
	comments repositories.CommentRepository,
	txManager repositories.TransactionManager,
	registry *forms.Registry,
	notifier services.Notifier,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		docs:      docs,
		versions:  versions,
		comments:  comments,
		txManager: txManager,
		forms:     registry,
		store:     NewVersionStore(versions),
		tracker:   NewContributionTracker(versions, comments),
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *documentService) Create(ctx context.Context, req *services.CreateDocumentRequest) (*services.DocumentView, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Author, validation.Required),
		validation.Field(&req.CustomForm, validation.Required),
		validation.Field(&req.Content, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	form, ok := s.forms.Lookup(req.CustomForm)
	if !ok {
		return nil, fmt.Errorf("%w: unknown custom form %q", domain.ErrValidation, req.CustomForm)
	}
	if err := forms.Validate(form.Fields, req.Content); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := &models.Document{
		ID:         uuid.NewString(),
		Author:     req.Author,
		CustomForm: req.CustomForm,
		Published:  req.Published,
		Revision:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	v1 := &models.Version{
		ID:        uuid.NewString(),
		Document:  doc.ID,
		Version:   1,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.CurrentVersion = v1.ID

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.docs.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.versions.Create(ctx, v1); err != nil {
			return fmt.Errorf("create version 1: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"document", doc.ID,
		"author", doc.Author,
		"published", doc.Published)

	if v1.Content.ClosingDate() != nil {
		s.notifier.Notify(ctx, services.KindDocumentClosing, map[string]string{
			"document":    doc.ID,
			"closingDate": fmt.Sprint(v1.Content["closingDate"]),
		})
	}

	return s.view(doc, v1), nil
}

func (s *documentService) Update(ctx context.Context, docID string, req *services.UpdateDocumentRequest) (*services.DocumentView, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if req.Caller != doc.Author {
		return nil, fmt.Errorf("%w: only the author can change a document", domain.ErrForbidden)
	}
	if req.Revision != nil && *req.Revision != doc.Revision {
		return nil, fmt.Errorf("%w: document %s moved past revision %d", domain.ErrConflict, doc.ID, *req.Revision)
	}

	form, ok := s.forms.Lookup(doc.CustomForm)
	if !ok {
		return nil, fmt.Errorf("%w: unknown custom form %q", domain.ErrValidation, doc.CustomForm)
	}

	// The version write and the envelope repoint share one transaction: a
	// revision conflict on the envelope must roll the forked version row
	// back, or the orphan at number N+1 would block every later fork.
	var current *models.Version
	var announce bool
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		switch {
		case len(req.Contributions) > 0:
			current, err = s.store.Fork(ctx, doc.CurrentVersion, req.Content, req.Contributions, form.Fields)
			if err != nil {
				return err
			}
			doc.CurrentVersion = current.ID
		case req.Content != nil:
			current, err = s.store.Amend(ctx, doc.CurrentVersion, req.Content, form.Fields)
			if err != nil {
				return err
			}
		default:
			current, err = s.versions.GetByID(ctx, doc.CurrentVersion)
			if err != nil {
				return err
			}
		}

		if req.Published != nil {
			doc.Published = *req.Published
		}

		announce = doc.Published && !doc.PublishedMailSent && wantsPublishMail(req.Content)
		if announce {
			doc.PublishedMailSent = true
		}

		doc.UpdatedAt = s.now().UTC()
		return s.docs.UpdateEnvelope(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"document", doc.ID,
		"version", current.Version,
		"forked", len(req.Contributions) > 0)

	if len(req.Contributions) > 0 {
		s.notifyContributors(ctx, doc, req.Contributions)
	}
	if req.Content != nil && req.Content.ClosingDate() != nil {
		s.notifier.Notify(ctx, services.KindDocumentClosing, map[string]string{
			"document":    doc.ID,
			"closingDate": fmt.Sprint(req.Content["closingDate"]),
		})
	}
	if announce {
		s.notifier.Notify(ctx, services.KindDocumentPublished, map[string]string{
			"document": doc.ID,
			"title":    current.Content.Title(),
		})
	}

	return s.view(doc, current), nil
}

// wantsPublishMail reports whether this update asked for the tag-subscriber
// announcement. The flag rides inside the content patch.
func wantsPublishMail(patch models.Content) bool {
	send, _ := patch["sendTagsNotification"].(bool)
	return send
}

// notifyContributors fires one notification per comment merged into the new
// version, so the comment authors learn their input landed.
func (s *documentService) notifyContributors(ctx context.Context, doc *models.Document, contributionIDs []string) {
	comments, err := s.comments.ListByIDs(ctx, contributionIDs)
	if err != nil {
		s.logger.Warn("resolve contribution comments for notification", "document", doc.ID, "error", err)
		return
	}
	for _, c := range comments {
		s.notifier.Notify(ctx, services.KindCommentContribution, map[string]string{
			"document": doc.ID,
			"comment":  c.ID,
			"user":     c.User,
		})
	}
}

func (s *documentService) Get(ctx context.Context, docID, callerID string) (*services.DocumentPayload, error) {
	return s.payload(ctx, docID, callerID, 0)
}

func (s *documentService) GetVersion(ctx context.Context, docID string, number int, callerID string) (*services.DocumentPayload, error) {
	if number < 1 {
		return nil, fmt.Errorf("%w: version numbers start at 1", domain.ErrValidation)
	}
	return s.payload(ctx, docID, callerID, number)
}

func (s *documentService) payload(ctx context.Context, docID, callerID string, versionNumber int) (*services.DocumentPayload, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	isAuthor := callerID != "" && callerID == doc.Author
	if !doc.Published && !isAuthor {
		return nil, fmt.Errorf("%w: document %s is a draft", domain.ErrForbidden, docID)
	}

	current, err := s.versions.GetByID(ctx, doc.CurrentVersion)
	if err != nil {
		return nil, err
	}

	p := &services.DocumentPayload{
		Document:         s.view(doc, current),
		IsAuthor:         isAuthor,
		UserHasSupported: callerID != "" && doc.HasSupportFromUser(callerID),
	}

	if versionNumber > 0 {
		retrieved, err := s.store.Get(ctx, docID, versionNumber)
		if err != nil {
			return nil, err
		}
		if retrieved == nil {
			return nil, fmt.Errorf("%w: version %d of %s", domain.ErrNotFound, versionNumber, docID)
		}
		p.RetrievedVersion = retrieved
	}

	// Contribution stats and the contextual comment count only matter once
	// the participation phase is over.
	if p.Document.Closed {
		stats, err := s.tracker.Count(ctx, docID)
		if err != nil {
			return nil, err
		}
		p.ContributionStats = stats

		contextual, err := s.comments.Count(ctx, docID, repositories.CommentFilter{DecoratedOnly: true})
		if err != nil {
			return nil, fmt.Errorf("count contextual comments: %w", err)
		}
		p.ContextualCommentsCount = &contextual
	}

	return p, nil
}

func (s *documentService) List(ctx context.Context, opts services.ListDocumentsOptions) (*services.DocumentPage, error) {
	docs, err := s.docs.List(ctx, repositories.DocumentFilter{PublishedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return s.page(ctx, docs, opts)
}

func (s *documentService) ListMine(ctx context.Context, author string, opts services.ListDocumentsOptions) (*services.DocumentPage, error) {
	if author == "" {
		return nil, fmt.Errorf("%w: missing author", domain.ErrUnauthorized)
	}
	docs, err := s.docs.List(ctx, repositories.DocumentFilter{Author: author})
	if err != nil {
		return nil, fmt.Errorf("list documents of %s: %w", author, err)
	}
	return s.page(ctx, docs, opts)
}

// page joins each envelope with its current version, applies the derived
// closed/tag filters and paginates in memory. Listings are small enough that
// the join stays readable; revisit if the corpus ever grows past that.
func (s *documentService) page(ctx context.Context, docs []models.Document, opts services.ListDocumentsOptions) (*services.DocumentPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}

	var open, closed []services.DocumentView
	for i := range docs {
		current, err := s.versions.GetByID(ctx, docs[i].CurrentVersion)
		if err != nil {
			return nil, fmt.Errorf("resolve current version of %s: %w", docs[i].ID, err)
		}
		view := s.view(&docs[i], current)
		if opts.Tag != "" && !hasTag(current.Content, opts.Tag) {
			continue
		}
		if opts.Closed != nil && view.Closed != *opts.Closed {
			continue
		}
		if view.Closed {
			closed = append(closed, *view)
		} else {
			open = append(open, *view)
		}
	}

	// Repositories list newest first; flipping each group keeps open
	// documents ahead of closed ones either way.
	if opts.CreatedAsc {
		reverse(open)
		reverse(closed)
	}
	all := append(open, closed...)

	count := len(all)
	pages := (count + opts.Limit - 1) / opts.Limit
	start := (opts.Page - 1) * opts.Limit
	if start > count {
		start = count
	}
	end := start + opts.Limit
	if end > count {
		end = count
	}

	return &services.DocumentPage{
		Results: all[start:end],
		Pagination: services.Pagination{
			Count: count,
			Page:  opts.Page,
			Pages: pages,
			Limit: opts.Limit,
		},
	}, nil
}

func reverse(views []services.DocumentView) {
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
}

func hasTag(content models.Content, tagID string) bool {
	for _, t := range content.Tags() {
		if t == tagID {
			return true
		}
	}
	return false
}

func (s *documentService) AddComment(ctx context.Context, docID string) error {
	return s.docs.AddCommentCount(ctx, docID, 1)
}

func (s *documentService) SubtractComment(ctx context.Context, docID string) error {
	return s.docs.AddCommentCount(ctx, docID, -1)
}

func (s *documentService) Support(ctx context.Context, docID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user", domain.ErrUnauthorized)
	}
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	current, err := s.versions.GetByID(ctx, doc.CurrentVersion)
	if err != nil {
		return err
	}
	if current.Content.Closed(s.now()) {
		return fmt.Errorf("%w: document %s no longer accepts supports", domain.ErrDocumentClosed, docID)
	}
	if doc.HasSupportFromUser(userID) {
		// Supporting twice is a no-op, not an error.
		return nil
	}
	return s.docs.AppendSupport(ctx, docID, models.Support{
		UserID: userID,
		Date:   s.now().UTC(),
	})
}

func (s *documentService) view(doc *models.Document, current *models.Version) *services.DocumentView {
	view := &services.DocumentView{
		Document:    *doc,
		Content:     current.Content,
		Closed:      current.Content.Closed(s.now()),
		ApoyosCount: len(doc.Apoyos),
	}
	view.Document.Apoyos = nil
	return view
}
