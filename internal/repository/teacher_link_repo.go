package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// TeacherLinkRepository manages the teacher↔student linkage graph.
type TeacherLinkRepository interface {
	ActiveLink(ctx context.Context, teacherID, studentID string) (models.TeacherLink, error)
	Create(ctx context.Context, link *models.TeacherLink) error
	ListByStudent(ctx context.Context, studentID string) ([]models.TeacherLink, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherLink, error)
	ListAll(ctx context.Context) ([]models.TeacherLink, error)
	FirstActiveForStudent(ctx context.Context, studentID string) (models.TeacherLink, error)
	Deactivate(ctx context.Context, id uint) error
}

type teacherLinkRepository struct {
	db *gorm.DB
}

// NewTeacherLinkRepository constructs a teacher-link repository.
func NewTeacherLinkRepository(db *gorm.DB) TeacherLinkRepository {
	return &teacherLinkRepository{db: db}
}

func (r *teacherLinkRepository) ActiveLink(ctx context.Context, teacherID, studentID string) (models.TeacherLink, error) {
	var link models.TeacherLink
	err := r.db.WithContext(ctx).
		First(&link, "teacher_id = ? AND student_id = ? AND active = ?", teacherID, studentID, true).Error
	if err != nil {
		return models.TeacherLink{}, err
	}
	return link, nil
}

func (r *teacherLinkRepository) Create(ctx context.Context, link *models.TeacherLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *teacherLinkRepository) ListByStudent(ctx context.Context, studentID string) ([]models.TeacherLink, error) {
	var links []models.TeacherLink
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("student_id = ? AND active = ?", studentID, true).
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *teacherLinkRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherLink, error) {
	var links []models.TeacherLink
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("teacher_id = ? AND active = ?", teacherID, true).
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *teacherLinkRepository) ListAll(ctx context.Context) ([]models.TeacherLink, error) {
	var links []models.TeacherLink
	err := r.db.WithContext(ctx).
		Preload("Teacher").Preload("Student").
		Order("assigned_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *teacherLinkRepository) FirstActiveForStudent(ctx context.Context, studentID string) (models.TeacherLink, error) {
	var link models.TeacherLink
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		First(&link, "student_id = ? AND active = ?", studentID, true).Error
	if err != nil {
		return models.TeacherLink{}, err
	}
	return link, nil
}

func (r *teacherLinkRepository) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.TeacherLink{}).
		Where("id = ?", id).
		UpdateColumn("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
