package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/repository"
)

// ProgressService tracks module completion and aggregates dashboards.
type ProgressService interface {
	UpdateModuleProgress(ctx context.Context, userID string, req dto.UpdateModuleProgressRequest) (dto.CourseProgressResponse, error)
	GetCourseProgress(ctx context.Context, userID string, courseID uint) (dto.CourseProgressResponse, error)
	ListModuleProgress(ctx context.Context, userID string, courseID uint) ([]dto.ModuleProgressResponse, error)
	SubmitQuiz(ctx context.Context, userID string, req dto.SubmitQuizRequest) error
	Dashboard(ctx context.Context, userID string) (dto.DashboardResponse, error)
}

type progressService struct {
	progress  repository.ProgressRepository
	courses   repository.CourseRepository
	favorites repository.FavoriteRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	validate  *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewProgressService builds the progress service.
func NewProgressService(
	progress repository.ProgressRepository,
	courses repository.CourseRepository,
	favorites repository.FavoriteRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger zerolog.Logger,
) ProgressService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &progressService{
		progress:  progress,
		courses:   courses,
		favorites: favorites,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validate:  validate,
		logger:    logger.With().Str("component", "progress_service").Logger(),
		tracer:    otel.Tracer("github.com/regod-app/regod-api/internal/service/progress"),
	}
}

// UpdateModuleProgress records a status transition and recomputes the course
// percentage from completed module counts.
func (s *progressService) UpdateModuleProgress(ctx context.Context, userID string, req dto.UpdateModuleProgressRequest) (dto.CourseProgressResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.CourseProgressResponse{}, err
	}

	module, err := s.courses.GetModule(ctx, req.ModuleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CourseProgressResponse{}, ErrModuleNotFound
	}
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}
	if module.CourseID != req.CourseID {
		return dto.CourseProgressResponse{}, ErrModuleNotFound
	}

	entry, err := s.progress.GetModuleProgress(ctx, userID, req.ModuleID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CourseProgressResponse{}, err
	}

	entry.UserID = userID
	entry.CourseID = req.CourseID
	entry.ModuleID = req.ModuleID
	entry.Status = req.Status
	if req.Status == models.ProgressCompleted && entry.CompletedAt == nil {
		now := time.Now()
		entry.CompletedAt = &now
	}
	if req.Status != models.ProgressCompleted {
		entry.CompletedAt = nil
	}

	if err := s.progress.SaveModuleProgress(ctx, &entry); err != nil {
		return dto.CourseProgressResponse{}, err
	}

	response, err := s.recomputeCourseProgress(ctx, userID, req.CourseID, &req.ModuleID)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	s.invalidateDashboard(ctx, userID)

	return response, nil
}

func (s *progressService) GetCourseProgress(ctx context.Context, userID string, courseID uint) (dto.CourseProgressResponse, error) {
	progress, err := s.progress.GetCourseProgress(ctx, userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.recomputeCourseProgress(ctx, userID, courseID, nil)
	}
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	return s.courseProgressResponse(ctx, userID, progress)
}

func (s *progressService) ListModuleProgress(ctx context.Context, userID string, courseID uint) ([]dto.ModuleProgressResponse, error) {
	entries, err := s.progress.ListModuleProgress(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ModuleProgressResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.ModuleProgressResponse{
			ModuleID:    entry.ModuleID,
			CourseID:    entry.CourseID,
			Status:      entry.Status,
			CompletedAt: entry.CompletedAt,
		})
	}

	return responses, nil
}

func (s *progressService) SubmitQuiz(ctx context.Context, userID string, req dto.SubmitQuizRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}

	module, err := s.courses.GetModule(ctx, req.ModuleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrModuleNotFound
	}
	if err != nil {
		return err
	}
	if module.CourseID != req.CourseID {
		return ErrModuleNotFound
	}

	for _, answer := range req.Answers {
		response := models.QuizResponse{
			UserID:       userID,
			CourseID:     req.CourseID,
			ModuleID:     req.ModuleID,
			Question:     answer.Question,
			Answer:       answer.Answer,
			QuestionType: answer.QuestionType,
		}
		if err := s.progress.CreateQuizResponse(ctx, &response); err != nil {
			return err
		}
	}

	return nil
}

// Dashboard aggregates per-course progress, served from Redis when fresh.
func (s *progressService) Dashboard(ctx context.Context, userID string) (dto.DashboardResponse, error) {
	ctx, span := s.tracer.Start(ctx, "progress.dashboard")
	defer span.End()

	cacheKey := fmt.Sprintf("dashboard:%s", userID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.DashboardResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
				return response, nil
			}
		}
	}
	span.SetAttributes(attribute.Bool("dashboard.cache_hit", false))

	entries, err := s.progress.ListCourseProgress(ctx, userID)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	response := dto.DashboardResponse{Courses: make([]dto.CourseProgressResponse, 0, len(entries))}
	for _, entry := range entries {
		item, err := s.courseProgressResponse(ctx, userID, entry)
		if err != nil {
			return dto.DashboardResponse{}, err
		}

		response.Courses = append(response.Courses, item)
		response.CompletedModules += item.CompletedModules
		if entry.CompletedAt != nil {
			response.CompletedCourses++
		} else {
			response.ActiveCourses++
		}
	}

	favorites, err := s.favorites.ListModuleFavorites(ctx, userID)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	response.FavoriteModules = len(favorites)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			s.cache.Set(ctx, cacheKey, payload, s.cacheTTL)
		}
	}

	return response, nil
}

func (s *progressService) recomputeCourseProgress(ctx context.Context, userID string, courseID uint, lastModuleID *uint) (dto.CourseProgressResponse, error) {
	total, err := s.courses.CountActiveModules(ctx, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	completed, err := s.progress.CountCompletedModules(ctx, userID, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	percentage := 0.0
	if total > 0 {
		percentage = math.Round(float64(completed)/float64(total)*10000) / 100
	}

	progress, err := s.progress.GetCourseProgress(ctx, userID, courseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CourseProgressResponse{}, err
	}

	progress.UserID = userID
	progress.CourseID = courseID
	progress.ProgressPercentage = percentage
	if lastModuleID != nil {
		progress.LastVisitedModuleID = lastModuleID
	}
	if total > 0 && completed >= total {
		if progress.CompletedAt == nil {
			now := time.Now()
			progress.CompletedAt = &now
		}
	} else {
		progress.CompletedAt = nil
	}

	if err := s.progress.SaveCourseProgress(ctx, &progress); err != nil {
		return dto.CourseProgressResponse{}, err
	}

	return s.courseProgressResponse(ctx, userID, progress)
}

func (s *progressService) courseProgressResponse(ctx context.Context, userID string, progress models.CourseProgress) (dto.CourseProgressResponse, error) {
	total, err := s.courses.CountActiveModules(ctx, progress.CourseID)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	completed, err := s.progress.CountCompletedModules(ctx, userID, progress.CourseID)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	title := ""
	if course, err := s.courses.GetCourse(ctx, progress.CourseID); err == nil {
		title = course.Title
	}

	return dto.CourseProgressResponse{
		CourseID:            progress.CourseID,
		CourseTitle:         title,
		ProgressPercentage:  progress.ProgressPercentage,
		CompletedModules:    int(completed),
		TotalModules:        int(total),
		LastVisitedModuleID: progress.LastVisitedModuleID,
		StartedAt:           progress.StartedAt,
		CompletedAt:         progress.CompletedAt,
		LastVisitedAt:       progress.LastVisitedAt,
	}, nil
}

func (s *progressService) invalidateDashboard(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, fmt.Sprintf("dashboard:%s", userID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate dashboard cache")
	}
}
