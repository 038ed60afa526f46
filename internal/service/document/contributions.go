package document

import (
	"context"
	"fmt"

	"participa/internal/domain/repositories"
	"participa/internal/domain/services"
)

// ContributionTracker derives the contribution counters from the whole
// version chain on read. Nothing is cached: a contribution merged into
// several versions counts once, and the contributor count is the number of
// distinct authors behind the deduplicated comment set.
type ContributionTracker struct {
	versions repositories.VersionRepository
	comments repositories.CommentRepository
}

// NewContributionTracker creates a contribution tracker.
func NewContributionTracker(versions repositories.VersionRepository, comments repositories.CommentRepository) *ContributionTracker {
	return &ContributionTracker{
		versions: versions,
		comments: comments,
	}
}

// Count computes the contribution stats for a document.
func (t *ContributionTracker) Count(ctx context.Context, docID string) (*services.ContributionStats, error) {
	versions, err := t.versions.ListByDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", docID, err)
	}

	seen := make(map[string]struct{})
	var commentIDs []string
	for _, v := range versions {
		for _, id := range v.Contributions {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			commentIDs = append(commentIDs, id)
		}
	}

	stats := &services.ContributionStats{ContributionsCount: len(commentIDs)}
	if len(commentIDs) == 0 {
		return stats, nil
	}

	comments, err := t.comments.ListByIDs(ctx, commentIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve contribution comments: %w", err)
	}
	authors := make(map[string]struct{})
	for _, c := range comments {
		authors[c.User] = struct{}{}
	}
	stats.ContributorsCount = len(authors)
	return stats, nil
}
