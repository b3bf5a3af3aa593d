package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads course content in bulk for staging environments.
type SeedService interface {
	SeedCourses(ctx context.Context, token string, courses []models.Course) (int, error)
}

type seedService struct {
	courses repository.CourseRepository
	enabled bool
	token   string
	logger  zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(courses repository.CourseRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		courses: courses,
		enabled: enabled,
		token:   token,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedCourses(ctx context.Context, token string, courses []models.Course) (int, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}

	created := 0
	for i := range courses {
		course := courses[i]
		course.ID = 0
		course.IsActive = true

		if err := s.courses.CreateCourse(ctx, &course); err != nil {
			return created, err
		}
		created++

		if err := s.courses.SyncModuleCount(ctx, course.ID); err != nil {
			s.logger.Warn().Err(err).Uint("course_id", course.ID).Msg("failed to sync module count")
		}
	}

	s.logger.Info().Int("created", created).Msg("courses seeded")

	return created, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}

	provided := strings.TrimSpace(token)
	if len(expected) != len(provided) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
