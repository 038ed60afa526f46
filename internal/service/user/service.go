// Package user implements platform user profiles. Identity lives in the
// external identity provider; this service owns only the profile payload the
// platform itself stores.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
	"participa/internal/domain/services"
	"participa/internal/forms"
)

// profileForm is the custom form every profile payload is validated against.
const profileForm = "user-profile"

type userService struct {
	users  repositories.UserRepository
	forms  *forms.Registry
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates the user service.
func NewService(users repositories.UserRepository, registry *forms.Registry, logger *slog.Logger) services.UserService {
	return &userService{
		users:  users,
		forms:  registry,
		logger: logger,
		now:    time.Now,
	}
}

func (s *userService) Get(ctx context.Context, id string, expose bool) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !expose {
		stripped := u.Expose()
		return &stripped, nil
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, req *services.UpdateProfileRequest) (*models.User, error) {
	if req.Fields == nil && req.Avatar == "" {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}

	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// First profile write creates the row; identity comes from the token.
		u = &models.User{ID: id, CreatedAt: s.now().UTC()}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create profile row: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	if req.Fields != nil {
		form, ok := s.forms.Lookup(profileForm)
		if !ok {
			return nil, fmt.Errorf("%w: profile form missing from registry", domain.ErrValidation)
		}
		merged := u.Fields.Merge(req.Fields)
		if err := forms.Validate(form.Fields, merged); err != nil {
			return nil, err
		}
		if err := s.users.UpdateFields(ctx, id, merged); err != nil {
			return nil, fmt.Errorf("update profile fields: %w", err)
		}
		u.Fields = merged
	}

	if req.Avatar != "" {
		if err := s.users.UpdateAvatar(ctx, id, req.Avatar); err != nil {
			return nil, fmt.Errorf("update avatar: %w", err)
		}
		u.Avatar = req.Avatar
	}

	s.logger.Info("profile updated", "user", id)
	return u, nil
}
