// Package support implements the anonymous-support double-opt-in flow:
// captcha issuance, validation-token lifecycle and final signature
// application.
package support

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
	"participa/internal/domain/services"
)

type supportService struct {
	docs     repositories.DocumentRepository
	versions repositories.VersionRepository
	tokens   repositories.SupportTokenRepository
	captcha  services.CaptchaProvider
	notifier services.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the anonymous-support service.
func NewService(
	docs repositories.DocumentRepository,
	versions repositories.VersionRepository,
	tokens repositories.SupportTokenRepository,
	captcha services.CaptchaProvider,
	notifier services.Notifier,
	logger *slog.Logger,
) services.SupportService {
	return &supportService{
		docs:     docs,
		versions: versions,
		tokens:   tokens,
		captcha:  captcha,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// fingerprint derives the stateless captcha fingerprint from an answer. The
// comparison is case-insensitive, so the answer is lowercased before hashing.
func fingerprint(answer string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(answer)))
	return hex.EncodeToString(sum[:])
}

func (s *supportService) RequestCaptcha(ctx context.Context) (*services.CaptchaData, error) {
	image, answer, err := s.captcha.Issue()
	if err != nil {
		return nil, fmt.Errorf("issue captcha: %w", err)
	}
	return &services.CaptchaData{
		Image:       image,
		Fingerprint: fingerprint(answer),
	}, nil
}

func (s *supportService) RequestSupport(ctx context.Context, req *services.SupportRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.DisplayName, validation.Required),
		validation.Field(&req.CaptchaAnswer, validation.Required),
		validation.Field(&req.Fingerprint, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if fingerprint(req.CaptchaAnswer) != req.Fingerprint {
		return fmt.Errorf("%w: wrong answer", domain.ErrCaptchaMismatch)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	doc, err := s.docs.GetByID(ctx, req.DocumentID)
	if err != nil {
		return err
	}
	current, err := s.versions.GetByID(ctx, doc.CurrentVersion)
	if err != nil {
		return err
	}
	if doc.HasSupportFromEmail(email) {
		return fmt.Errorf("%w: %s already supports this document", domain.ErrConflict, email)
	}
	if current.Content.Closed(s.now()) {
		return fmt.Errorf("%w: document %s no longer accepts supports", domain.ErrDocumentClosed, doc.ID)
	}

	// One live token per email. Inside the validation window a second
	// request is rejected; a stale token is replaced. Check-then-act here
	// races with itself, but the worst case is a replaced token, never a
	// double signature.
	existing, err := s.tokens.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.Expired(s.now()) {
			return fmt.Errorf("%w: a validation mail for %s is still live", domain.ErrPendingValidation, email)
		}
		if err := s.tokens.Delete(ctx, existing.ID); err != nil {
			return fmt.Errorf("replace stale token: %w", err)
		}
	case errors.Is(err, domain.ErrNotFound):
		// first request for this email
	default:
		return fmt.Errorf("look up validation token: %w", err)
	}

	token := &models.SupportToken{
		ID:          uuid.NewString(),
		Document:    doc.ID,
		Email:       email,
		DisplayName: req.DisplayName,
		Token:       uuid.NewString(),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("create validation token: %w", err)
	}

	s.logger.Info("anonymous support requested", "document", doc.ID)

	s.notifier.Notify(ctx, services.KindSupportValidation, map[string]string{
		"email":       email,
		"displayName": req.DisplayName,
		"document":    doc.ID,
		"title":       current.Content.Title(),
		"token":       token.Token,
	})
	return nil
}

func (s *supportService) ConfirmSupport(ctx context.Context, token string) (*services.DocumentView, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrNotFound)
	}

	t, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.GetByID(ctx, t.Document)
	if err != nil {
		return nil, err
	}

	// Idempotent per email: a second click on the same mail link after the
	// token is gone lands in ErrNotFound above, and a stray duplicate token
	// must not double-sign.
	if !doc.HasSupportFromEmail(t.Email) {
		err = s.docs.AppendSupport(ctx, doc.ID, models.Support{
			Email:       t.Email,
			DisplayName: t.DisplayName,
			Date:        s.now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("append anonymous support: %w", err)
		}
		doc.Apoyos = append(doc.Apoyos, models.Support{Email: t.Email})
	}

	if err := s.tokens.Delete(ctx, t.ID); err != nil {
		s.logger.Warn("delete consumed support token", "token_id", t.ID, "error", err)
	}

	s.logger.Info("anonymous support confirmed", "document", doc.ID)

	current, err := s.versions.GetByID(ctx, doc.CurrentVersion)
	if err != nil {
		return nil, err
	}
	view := &services.DocumentView{
		Document:    *doc,
		Content:     current.Content,
		Closed:      current.Content.Closed(s.now()),
		ApoyosCount: len(doc.Apoyos),
	}
	view.Document.Apoyos = nil
	return view, nil
}
