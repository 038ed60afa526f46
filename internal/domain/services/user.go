package services

import (
	"context"

	"participa/internal/domain/models"
)

// UpdateProfileRequest patches a user's profile. Fields is validated against
// the user-profile custom form; keys present overwrite, others are kept.
type UpdateProfileRequest struct {
	Fields models.Content `json:"fields"`
	Avatar string         `json:"avatar"`
}

// UserService owns platform user profiles.
type UserService interface {
	// Get returns a user. With expose false, private fields (email, avatar)
	// are stripped.
	Get(ctx context.Context, id string, expose bool) (*models.User, error)

	UpdateProfile(ctx context.Context, id string, req *UpdateProfileRequest) (*models.User, error)
}
