// Package tag implements the canonical tag catalog and its cascade cleanup.
package tag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
	"participa/internal/domain/services"
)

type tagService struct {
	tags     repositories.TagRepository
	users    repositories.UserRepository
	versions repositories.VersionRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the tag service.
func NewService(
	tags repositories.TagRepository,
	users repositories.UserRepository,
	versions repositories.VersionRepository,
	logger *slog.Logger,
) services.TagService {
	return &tagService{
		tags:     tags,
		users:    users,
		versions: versions,
		logger:   logger,
		now:      time.Now,
	}
}

// slugify derives the unique tag key from its display name: lowercased,
// spaces collapsed to single dashes, everything but letters and digits
// dropped.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *tagService) Create(ctx context.Context, name string) (*models.DocumentTag, error) {
	if err := validation.Validate(name, validation.Required, validation.Length(1, 120)); err != nil {
		return nil, fmt.Errorf("%w: name %v", domain.ErrValidation, err)
	}

	tag := &models.DocumentTag{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(name),
		Key:  slugify(name),
	}
	if tag.Key == "" {
		return nil, fmt.Errorf("%w: name yields an empty key", domain.ErrValidation)
	}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}

	// New tags are opt-out: every user that already carries a subscription
	// list gets the tag appended, so fresh categories reach the existing
	// audience by default.
	subscribers, err := s.users.ListWithTagsField(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribable users: %w", err)
	}
	for i := range subscribers {
		u := &subscribers[i]
		fields := u.Fields.Merge(nil)
		fields.SetTags(append(u.SubscribedTags(), tag.ID))
		if err := s.users.UpdateFields(ctx, u.ID, fields); err != nil {
			return nil, fmt.Errorf("subscribe user %s to tag %s: %w", u.ID, tag.ID, err)
		}
	}

	s.logger.Info("tag created", "tag", tag.ID, "key", tag.Key, "subscribed", len(subscribers))
	return tag, nil
}

func (s *tagService) List(ctx context.Context) ([]models.DocumentTag, error) {
	return s.tags.List(ctx)
}

// Delete cascade-cleans the weak references before removing the tag row:
// user subscription lists first, then version contents, then the tag itself.
// The cascade is not atomic; a failure partway leaves stripped references
// with the tag still listed, and a retry finishes the job.
func (s *tagService) Delete(ctx context.Context, id string) error {
	if _, err := s.tags.GetByID(ctx, id); err != nil {
		return err
	}

	users, err := s.users.ListWithTag(ctx, id)
	if err != nil {
		return fmt.Errorf("list users with tag %s: %w", id, err)
	}
	for i := range users {
		u := &users[i]
		fields := u.Fields.Merge(nil)
		fields.SetTags(remove(u.SubscribedTags(), id))
		if err := s.users.UpdateFields(ctx, u.ID, fields); err != nil {
			return fmt.Errorf("strip tag %s from user %s: %w", id, u.ID, err)
		}
	}

	versions, err := s.versions.ListWithTag(ctx, id)
	if err != nil {
		return fmt.Errorf("list versions with tag %s: %w", id, err)
	}
	for i := range versions {
		v := &versions[i]
		content := v.Content.Merge(nil)
		content.SetTags(remove(v.Content.Tags(), id))
		if err := s.versions.UpdateContent(ctx, v.ID, content); err != nil {
			return fmt.Errorf("strip tag %s from version %s: %w", id, v.ID, err)
		}
	}

	if err := s.tags.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("tag deleted", "tag", id, "users", len(users), "versions", len(versions))
	return nil
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
