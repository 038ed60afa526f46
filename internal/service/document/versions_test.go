package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/forms"
	"participa/internal/testutil"
)

var testSpec = forms.FieldSpec{
	Required: []string{"title"},
	Properties: map[string]forms.Property{
		"title": {Type: "string"},
		"body":  {Type: "string"},
	},
}

func seedVersion(t *testing.T, repo *testutil.VersionRepo, number int, content models.Content) *models.Version {
	t.Helper()
	v := &models.Version{
		ID:       "v-" + content.Title(),
		Document: "doc-1",
		Version:  number,
		Content:  content,
	}
	require.NoError(t, repo.Create(context.Background(), v))
	return v
}

func TestAmendKeepsIdentityAndMerges(t *testing.T) {
	repo := &testutil.VersionRepo{}
	store := NewVersionStore(repo)
	v1 := seedVersion(t, repo, 1, models.Content{"title": "a", "body": "original"})

	amended, err := store.Amend(context.Background(), v1.ID, models.Content{"title": "b"}, testSpec)
	require.NoError(t, err)
	require.Equal(t, v1.ID, amended.ID)
	require.Equal(t, 1, amended.Version)
	require.Equal(t, "b", amended.Content.Title())
	require.Equal(t, "original", amended.Content["body"])
}

func TestAmendRejectsInvalidMerge(t *testing.T) {
	repo := &testutil.VersionRepo{}
	store := NewVersionStore(repo)
	v1 := seedVersion(t, repo, 1, models.Content{"title": "a"})

	_, err := store.Amend(context.Background(), v1.ID, models.Content{"rogue": true}, testSpec)
	require.ErrorIs(t, err, domain.ErrValidation)

	// A rejected amend leaves the stored snapshot untouched.
	stored, err := repo.GetByID(context.Background(), v1.ID)
	require.NoError(t, err)
	require.NotContains(t, stored.Content, "rogue")
}

func TestForkAppendsNextNumber(t *testing.T) {
	repo := &testutil.VersionRepo{}
	store := NewVersionStore(repo)
	v1 := seedVersion(t, repo, 1, models.Content{"title": "a", "body": "kept"})

	v2, err := store.Fork(context.Background(), v1.ID, models.Content{"title": "b"}, []string{"c1"}, testSpec)
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)
	require.Equal(t, "doc-1", v2.Document)
	require.Equal(t, "b", v2.Content.Title())
	require.Equal(t, "kept", v2.Content["body"])
	require.Equal(t, []string{"c1"}, v2.Contributions)

	// The previous version is historical record: content and contribution
	// list stay exactly as they were.
	prev, err := repo.GetByID(context.Background(), v1.ID)
	require.NoError(t, err)
	require.Equal(t, "a", prev.Content.Title())
	require.Empty(t, prev.Contributions)
}

func TestForkDoesNotInheritContributions(t *testing.T) {
	repo := &testutil.VersionRepo{}
	store := NewVersionStore(repo)
	v1 := seedVersion(t, repo, 1, models.Content{"title": "a"})

	v2, err := store.Fork(context.Background(), v1.ID, models.Content{"title": "b"}, []string{"c1"}, testSpec)
	require.NoError(t, err)
	v3, err := store.Fork(context.Background(), v2.ID, models.Content{"title": "c"}, []string{"c2"}, testSpec)
	require.NoError(t, err)

	require.Equal(t, []string{"c2"}, v3.Contributions)
}

func TestGetAbsentVersionIsNil(t *testing.T) {
	repo := &testutil.VersionRepo{}
	store := NewVersionStore(repo)
	seedVersion(t, repo, 1, models.Content{"title": "a"})

	v, err := store.Get(context.Background(), "doc-1", 1)
	require.NoError(t, err)
	require.NotNil(t, v)

	v, err = store.Get(context.Background(), "doc-1", 9)
	require.NoError(t, err)
	require.Nil(t, v)
}
