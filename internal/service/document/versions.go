package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
	"participa/internal/forms"
)

// VersionStore owns the append/amend discipline of the version chain. A
// document's content only ever changes through Amend (overwrite the current
// snapshot) or Fork (append the next snapshot); version numbers stay a
// gapless 1..N sequence because Fork always derives from the version the
// document currently points at.
type VersionStore struct {
	versions repositories.VersionRepository
	now      func() time.Time
}

// NewVersionStore creates a version store.
func NewVersionStore(versions repositories.VersionRepository) *VersionStore {
	return &VersionStore{
		versions: versions,
		now:      time.Now,
	}
}

// Amend merges patch over the version's content, validates the merged payload
// against the form schema and overwrites the row in place. The version id and
// number never change.
func (s *VersionStore) Amend(ctx context.Context, versionID string, patch models.Content, spec forms.FieldSpec) (*models.Version, error) {
	v, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}

	merged := v.Content.Merge(patch)
	if err := forms.Validate(spec, merged); err != nil {
		return nil, err
	}

	if err := s.versions.UpdateContent(ctx, v.ID, merged); err != nil {
		return nil, fmt.Errorf("amend version %s: %w", v.ID, err)
	}

	v.Content = merged
	v.UpdatedAt = s.now().UTC()
	return v, nil
}

// Fork appends a new version derived from prevVersionID: the content is the
// shallow merge of patch over the previous snapshot, the number is the
// previous number plus one, and the contribution list records only the
// comments merged into this fork. The previous version is left untouched.
func (s *VersionStore) Fork(ctx context.Context, prevVersionID string, patch models.Content, contributions []string, spec forms.FieldSpec) (*models.Version, error) {
	prev, err := s.versions.GetByID(ctx, prevVersionID)
	if err != nil {
		return nil, err
	}

	merged := prev.Content.Merge(patch)
	if err := forms.Validate(spec, merged); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	next := &models.Version{
		ID:            uuid.NewString(),
		Document:      prev.Document,
		Version:       prev.Version + 1,
		Content:       merged,
		Contributions: append([]string(nil), contributions...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.versions.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("fork version %d of %s: %w", next.Version, prev.Document, err)
	}
	return next, nil
}

// Get is a point lookup of (document, version number). An absent version is
// not an error: it returns nil.
func (s *VersionStore) Get(ctx context.Context, docID string, number int) (*models.Version, error) {
	v, err := s.versions.GetByNumber(ctx, docID, number)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
