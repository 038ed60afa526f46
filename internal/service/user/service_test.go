package user

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/services"
	"participa/internal/forms"
	"participa/internal/testutil"
)

func newTestService(t *testing.T) (services.UserService, *testutil.UserRepo) {
	t.Helper()
	registry, err := forms.NewRegistry()
	require.NoError(t, err)
	repo := &testutil.UserRepo{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewService(repo, registry, logger), repo
}

func TestGetStripsPrivateFieldsByDefault(t *testing.T) {
	svc, repo := newTestService(t)
	repo.Create(context.Background(), &models.User{
		ID: "user-1", Fullname: "Ada", Email: "ada@example.org", Avatar: "a.png",
	})

	u, err := svc.Get(context.Background(), "user-1", false)
	require.NoError(t, err)
	require.Equal(t, "Ada", u.Fullname)
	require.Empty(t, u.Email)
	require.Empty(t, u.Avatar)

	u, err = svc.Get(context.Background(), "user-1", true)
	require.NoError(t, err)
	require.Equal(t, "ada@example.org", u.Email)
}

func TestUpdateProfileMergesAndValidates(t *testing.T) {
	svc, repo := newTestService(t)
	repo.Create(context.Background(), &models.User{
		ID:     "user-1",
		Fields: models.Content{"occupation": "ingeniera"},
	})

	u, err := svc.UpdateProfile(context.Background(), "user-1", &services.UpdateProfileRequest{
		Fields: models.Content{"province": "Córdoba"},
	})
	require.NoError(t, err)
	require.Equal(t, "ingeniera", u.Fields["occupation"])
	require.Equal(t, "Córdoba", u.Fields["province"])

	_, err = svc.UpdateProfile(context.Background(), "user-1", &services.UpdateProfileRequest{
		Fields: models.Content{"rogue": 1},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateProfileCreatesRowOnFirstWrite(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.UpdateProfile(context.Background(), "user-9", &services.UpdateProfileRequest{
		Fields: models.Content{"occupation": "engineer"},
	})
	require.NoError(t, err)

	u, err := repo.GetByID(context.Background(), "user-9")
	require.NoError(t, err)
	require.Equal(t, "engineer", u.Fields["occupation"])
}

func TestUpdateProfileAvatarOnly(t *testing.T) {
	svc, repo := newTestService(t)
	repo.Create(context.Background(), &models.User{ID: "user-1"})

	u, err := svc.UpdateProfile(context.Background(), "user-1", &services.UpdateProfileRequest{
		Avatar: "new.png",
	})
	require.NoError(t, err)
	require.Equal(t, "new.png", u.Avatar)

	_, err = svc.UpdateProfile(context.Background(), "user-1", &services.UpdateProfileRequest{})
	require.ErrorIs(t, err, domain.ErrValidation)
}
