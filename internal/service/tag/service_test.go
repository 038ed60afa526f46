package tag

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/services"
	"participa/internal/testutil"
)

type testEnv struct {
	svc      services.TagService
	tags     *testutil.TagRepo
	users    *testutil.UserRepo
	versions *testutil.VersionRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tags:     &testutil.TagRepo{},
		users:    &testutil.UserRepo{},
		versions: &testutil.VersionRepo{},
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	env.svc = NewService(env.tags, env.users, env.versions, logger)
	return env
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"Medio Ambiente", "medio-ambiente"},
		{"  Salud  ", "salud"},
		{"Educación", "educación"},
		{"A & B", "a-b"},
		{"Transporte!", "transporte"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, slugify(tt.name), "slugify(%q)", tt.name)
	}
}

func TestCreateSubscribesExistingUsers(t *testing.T) {
	env := newTestEnv(t)
	env.users.Create(context.Background(), &models.User{
		ID:     "user-1",
		Fields: models.Content{"tags": []interface{}{"old-tag"}},
	})
	env.users.Create(context.Background(), &models.User{
		ID:     "user-2",
		Fields: models.Content{"occupation": "ingeniera"}, // no subscription list
	})

	tag, err := env.svc.Create(context.Background(), "Medio Ambiente")
	require.NoError(t, err)
	require.Equal(t, "medio-ambiente", tag.Key)

	u1, err := env.users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"old-tag", tag.ID}, u1.SubscribedTags())

	u2, err := env.users.GetByID(context.Background(), "user-2")
	require.NoError(t, err)
	require.Empty(t, u2.SubscribedTags())
}

func TestCreateDuplicateKey(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), "Salud")
	require.NoError(t, err)
	_, err = env.svc.Create(context.Background(), "salud")
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.Create(context.Background(), "!!!")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	tag, err := env.svc.Create(context.Background(), "Salud")
	require.NoError(t, err)

	env.users.Create(context.Background(), &models.User{
		ID:     "user-1",
		Fields: models.Content{"tags": []interface{}{tag.ID, "other"}},
	})
	env.versions.Create(context.Background(), &models.Version{
		ID: "v1", Document: "doc-1", Version: 1,
		Content: models.Content{"title": "A", "tags": []interface{}{tag.ID, "other"}},
	})

	require.NoError(t, env.svc.Delete(context.Background(), tag.ID))

	u, err := env.users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"other"}, u.SubscribedTags())

	v, err := env.versions.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	require.Equal(t, []string{"other"}, v.Content.Tags())

	_, err = env.tags.GetByID(context.Background(), tag.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteUnknownTag(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.Delete(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrdersByName(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Create(context.Background(), "Transporte")
	require.NoError(t, err)
	_, err = env.svc.Create(context.Background(), "Ambiente")
	require.NoError(t, err)

	tags, err := env.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	require.Equal(t, "Ambiente", tags[0].Name)
	require.Equal(t, "Transporte", tags[1].Name)
}
