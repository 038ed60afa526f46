package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"participa/internal/domain/models"
	"participa/internal/testutil"
)

func TestContributionCountDeduplicatesAcrossVersions(t *testing.T) {
	versions := &testutil.VersionRepo{}
	comments := &testutil.CommentRepo{}
	tracker := NewContributionTracker(versions, comments)

	comments.Create(context.Background(), &models.Comment{ID: "c1", Document: "doc-1", User: "user-1"})
	comments.Create(context.Background(), &models.Comment{ID: "c2", Document: "doc-1", User: "user-2"})

	versions.Create(context.Background(), &models.Version{
		ID: "v1", Document: "doc-1", Version: 1,
		Content: models.Content{}, Contributions: []string{"c1"},
	})
	versions.Create(context.Background(), &models.Version{
		ID: "v2", Document: "doc-1", Version: 2,
		Content: models.Content{}, Contributions: []string{"c1", "c2"},
	})

	stats, err := tracker.Count(context.Background(), "doc-1")
	require.NoError(t, err)
	// c1 appears in both versions but counts once.
	require.Equal(t, 2, stats.ContributionsCount)
	require.Equal(t, 2, stats.ContributorsCount)
}

func TestContributionCountEmptyChain(t *testing.T) {
	versions := &testutil.VersionRepo{}
	versions.Create(context.Background(), &models.Version{
		ID: "v1", Document: "doc-1", Version: 1, Content: models.Content{},
	})
	tracker := NewContributionTracker(versions, &testutil.CommentRepo{})

	stats, err := tracker.Count(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Zero(t, stats.ContributionsCount)
	require.Zero(t, stats.ContributorsCount)
}

func TestContributorCountCollapsesSameAuthor(t *testing.T) {
	versions := &testutil.VersionRepo{}
	comments := &testutil.CommentRepo{}
	tracker := NewContributionTracker(versions, comments)

	comments.Create(context.Background(), &models.Comment{ID: "c1", Document: "doc-1", User: "user-1"})
	comments.Create(context.Background(), &models.Comment{ID: "c2", Document: "doc-1", User: "user-1"})

	versions.Create(context.Background(), &models.Version{
		ID: "v1", Document: "doc-1", Version: 1,
		Content: models.Content{}, Contributions: []string{"c1", "c2"},
	})

	stats, err := tracker.Count(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, 2, stats.ContributionsCount)
	require.Equal(t, 1, stats.ContributorsCount)
}
