package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// TeacherCodeRepository provides access to enrollment codes and their
// redemption records.
type TeacherCodeRepository interface {
	Create(ctx context.Context, code *models.TeacherCode) error
	GetByCode(ctx context.Context, code string) (models.TeacherCode, error)
	GetByID(ctx context.Context, id uint) (models.TeacherCode, error)
	FirstByTeacher(ctx context.Context, teacherID string) (models.TeacherCode, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherCode, error)
	ConsumeUse(ctx context.Context, id uint, now time.Time) (bool, error)
	RecordUse(ctx context.Context, codeID uint, studentID string) error
	HasUse(ctx context.Context, codeID uint, studentID string) (bool, error)
	Deactivate(ctx context.Context, id uint) error
}

type teacherCodeRepository struct {
	db *gorm.DB
}

// NewTeacherCodeRepository constructs a teacher-code repository.
func NewTeacherCodeRepository(db *gorm.DB) TeacherCodeRepository {
	return &teacherCodeRepository{db: db}
}

func (r *teacherCodeRepository) Create(ctx context.Context, code *models.TeacherCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *teacherCodeRepository) GetByCode(ctx context.Context, code string) (models.TeacherCode, error) {
	var record models.TeacherCode
	err := r.db.WithContext(ctx).Preload("Teacher").First(&record, "code = ?", code).Error
	if err != nil {
		return models.TeacherCode{}, err
	}
	return record, nil
}

func (r *teacherCodeRepository) GetByID(ctx context.Context, id uint) (models.TeacherCode, error) {
	var record models.TeacherCode
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return models.TeacherCode{}, err
	}
	return record, nil
}

func (r *teacherCodeRepository) FirstByTeacher(ctx context.Context, teacherID string) (models.TeacherCode, error) {
	var record models.TeacherCode
	err := r.db.WithContext(ctx).First(&record, "teacher_id = ?", teacherID).Error
	if err != nil {
		return models.TeacherCode{}, err
	}
	return record, nil
}

func (r *teacherCodeRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherCode, error) {
	var records []models.TeacherCode
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ConsumeUse increments use_count only while the code is redeemable. The
// check and the increment happen in one conditional UPDATE so concurrent
// redemptions can never push a limited code past its max uses.
func (r *teacherCodeRepository) ConsumeUse(ctx context.Context, id uint, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.TeacherCode{}).
		Where("id = ? AND is_active = ?", id, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Where("max_uses = ? OR use_count < max_uses", models.UnlimitedUses).
		UpdateColumn("use_count", gorm.Expr("use_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *teacherCodeRepository) RecordUse(ctx context.Context, codeID uint, studentID string) error {
	return r.db.WithContext(ctx).Create(&models.TeacherCodeUse{
		CodeID:    codeID,
		StudentID: studentID,
	}).Error
}

func (r *teacherCodeRepository) HasUse(ctx context.Context, codeID uint, studentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TeacherCodeUse{}).
		Where("code_id = ? AND student_id = ?", codeID, studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *teacherCodeRepository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.TeacherCode{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false).Error
}
