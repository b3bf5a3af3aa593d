package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// CourseFilter narrows course listings.
type CourseFilter struct {
	Page       int
	PageSize   int
	Category   string
	Difficulty string
	Search     string
	ActiveOnly bool
}

// CourseRepository persists courses, chapters and modules.
type CourseRepository interface {
	CreateCourse(ctx context.Context, course *models.Course) error
	GetCourse(ctx context.Context, id uint) (models.Course, error)
	GetCourseWithContent(ctx context.Context, id uint) (models.Course, error)
	ListCourses(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error)
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id uint) error

	CreateChapter(ctx context.Context, chapter *models.Chapter) error
	GetChapter(ctx context.Context, id uint) (models.Chapter, error)
	ListChapters(ctx context.Context, courseID uint) ([]models.Chapter, error)
	UpdateChapter(ctx context.Context, chapter *models.Chapter) error
	DeleteChapter(ctx context.Context, id uint) error

	CreateModule(ctx context.Context, module *models.Module) error
	GetModule(ctx context.Context, id uint) (models.Module, error)
	ListModules(ctx context.Context, courseID uint) ([]models.Module, error)
	UpdateModule(ctx context.Context, module *models.Module) error
	DeleteModule(ctx context.Context, id uint) error
	CountActiveModules(ctx context.Context, courseID uint) (int64, error)
	SyncModuleCount(ctx context.Context, courseID uint) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs the course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) GetCourseWithContent(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Chapters.Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		First(&course, id).Error
	if err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) ListCourses(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{})

	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Omit("Chapters", "Modules").Save(course).Error
}

func (r *courseRepository) DeleteCourse(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Course{}, id).Error
}

func (r *courseRepository) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	return r.db.WithContext(ctx).Create(chapter).Error
}

func (r *courseRepository) GetChapter(ctx context.Context, id uint) (models.Chapter, error) {
	var chapter models.Chapter
	err := r.db.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		First(&chapter, id).Error
	if err != nil {
		return models.Chapter{}, err
	}

	return chapter, nil
}

func (r *courseRepository) ListChapters(ctx context.Context, courseID uint) ([]models.Chapter, error) {
	var chapters []models.Chapter
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("sequence ASC").
		Find(&chapters).Error

	return chapters, err
}

func (r *courseRepository) UpdateChapter(ctx context.Context, chapter *models.Chapter) error {
	return r.db.WithContext(ctx).Omit("Modules").Save(chapter).Error
}

func (r *courseRepository) DeleteChapter(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Chapter{}, id).Error
}

func (r *courseRepository) CreateModule(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *courseRepository) GetModule(ctx context.Context, id uint) (models.Module, error) {
	var module models.Module
	if err := r.db.WithContext(ctx).First(&module, id).Error; err != nil {
		return models.Module{}, err
	}

	return module, nil
}

func (r *courseRepository) ListModules(ctx context.Context, courseID uint) ([]models.Module, error) {
	var modules []models.Module
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("sequence ASC").
		Find(&modules).Error

	return modules, err
}

func (r *courseRepository) UpdateModule(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Save(module).Error
}

func (r *courseRepository) DeleteModule(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Module{}, id).Error
}

func (r *courseRepository) CountActiveModules(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Module{}).
		Where("course_id = ? AND is_active = ?", courseID, true).
		Count(&count).Error

	return count, err
}

func (r *courseRepository) SyncModuleCount(ctx context.Context, courseID uint) error {
	count, err := r.CountActiveModules(ctx, courseID)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", courseID).
		UpdateColumn("total_modules", count).Error
}
