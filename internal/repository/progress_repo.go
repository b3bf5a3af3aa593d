package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// ProgressRepository persists course and module progress.
type ProgressRepository interface {
	GetCourseProgress(ctx context.Context, userID string, courseID uint) (models.CourseProgress, error)
	ListCourseProgress(ctx context.Context, userID string) ([]models.CourseProgress, error)
	SaveCourseProgress(ctx context.Context, progress *models.CourseProgress) error

	GetModuleProgress(ctx context.Context, userID string, moduleID uint) (models.ModuleProgress, error)
	ListModuleProgress(ctx context.Context, userID string, courseID uint) ([]models.ModuleProgress, error)
	SaveModuleProgress(ctx context.Context, progress *models.ModuleProgress) error
	CountCompletedModules(ctx context.Context, userID string, courseID uint) (int64, error)

	CreateQuizResponse(ctx context.Context, response *models.QuizResponse) error
	ListQuizResponses(ctx context.Context, userID string, moduleID uint) ([]models.QuizResponse, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository constructs the progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) GetCourseProgress(ctx context.Context, userID string, courseID uint) (models.CourseProgress, error) {
	var progress models.CourseProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if err != nil {
		return models.CourseProgress{}, err
	}

	return progress, nil
}

func (r *progressRepository) ListCourseProgress(ctx context.Context, userID string) ([]models.CourseProgress, error) {
	var entries []models.CourseProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_visited_at DESC").
		Find(&entries).Error

	return entries, err
}

func (r *progressRepository) SaveCourseProgress(ctx context.Context, progress *models.CourseProgress) error {
	progress.LastVisitedAt = time.Now()

	if progress.ID != 0 {
		return r.db.WithContext(ctx).Save(progress).Error
	}

	var existing models.CourseProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", progress.UserID, progress.CourseID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(progress).Error
	}
	if err != nil {
		return err
	}

	progress.ID = existing.ID
	progress.StartedAt = existing.StartedAt

	return r.db.WithContext(ctx).Save(progress).Error
}

func (r *progressRepository) GetModuleProgress(ctx context.Context, userID string, moduleID uint) (models.ModuleProgress, error) {
	var progress models.ModuleProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&progress).Error
	if err != nil {
		return models.ModuleProgress{}, err
	}

	return progress, nil
}

func (r *progressRepository) ListModuleProgress(ctx context.Context, userID string, courseID uint) ([]models.ModuleProgress, error) {
	var entries []models.ModuleProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&entries).Error

	return entries, err
}

func (r *progressRepository) SaveModuleProgress(ctx context.Context, progress *models.ModuleProgress) error {
	if progress.ID != 0 {
		return r.db.WithContext(ctx).Save(progress).Error
	}

	var existing models.ModuleProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", progress.UserID, progress.ModuleID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(progress).Error
	}
	if err != nil {
		return err
	}

	progress.ID = existing.ID

	return r.db.WithContext(ctx).Save(progress).Error
}

func (r *progressRepository) CountCompletedModules(ctx context.Context, userID string, courseID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ModuleProgress{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.ProgressCompleted).
		Count(&count).Error

	return count, err
}

func (r *progressRepository) CreateQuizResponse(ctx context.Context, response *models.QuizResponse) error {
	return r.db.WithContext(ctx).Create(response).Error
}

func (r *progressRepository) ListQuizResponses(ctx context.Context, userID string, moduleID uint) ([]models.QuizResponse, error) {
	var responses []models.QuizResponse
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Order("submitted_at ASC").
		Find(&responses).Error

	return responses, err
}
