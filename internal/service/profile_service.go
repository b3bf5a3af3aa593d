package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/repository"
)

// ProfileService exposes the caller's own account.
type ProfileService interface {
	Get(ctx context.Context, userID string) (dto.ProfileResponse, error)
	Update(ctx context.Context, userID string, req dto.UpdateProfileRequest) (dto.ProfileResponse, error)
	Delete(ctx context.Context, userID string) error
}

type profileService struct {
	users    repository.UserRepository
	tokens   repository.RefreshTokenRepository
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewProfileService builds the profile service.
func NewProfileService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) ProfileService {
	return &profileService{
		users:    users,
		tokens:   tokens,
		validate: validate,
		logger:   logger.With().Str("component", "profile_service").Logger(),
	}
}

func (s *profileService) Get(ctx context.Context, userID string) (dto.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ProfileResponse{}, ErrUserNotFound
	}
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	return profileResponse(user), nil
}

func (s *profileService) Update(ctx context.Context, userID string, req dto.UpdateProfileRequest) (dto.ProfileResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.ProfileResponse{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ProfileResponse{}, ErrUserNotFound
	}
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return dto.ProfileResponse{}, err
	}

	return profileResponse(user), nil
}

// Delete deactivates the caller's account and revokes their refresh tokens.
func (s *profileService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Deactivate(ctx, userID); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	} else if err != nil {
		return err
	}

	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to revoke refresh tokens")
	}

	s.logger.Info().Str("user_id", userID).Msg("account self-deactivated")

	return nil
}
