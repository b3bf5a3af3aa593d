package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// NoteRepository persists private study notes.
type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id uint) (models.Note, error)
	ListByUser(ctx context.Context, userID string, moduleID *uint) ([]models.Note, error)
	Update(ctx context.Context, note *models.Note) error
	Delete(ctx context.Context, id uint) error
}

type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository constructs the note repository.
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Create(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *noteRepository) GetByID(ctx context.Context, id uint) (models.Note, error) {
	var note models.Note
	if err := r.db.WithContext(ctx).First(&note, id).Error; err != nil {
		return models.Note{}, err
	}

	return note, nil
}

func (r *noteRepository) ListByUser(ctx context.Context, userID string, moduleID *uint) ([]models.Note, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if moduleID != nil {
		query = query.Where("module_id = ?", *moduleID)
	}

	var notes []models.Note
	if err := query.Order("updated_at DESC").Find(&notes).Error; err != nil {
		return nil, err
	}

	return notes, nil
}

func (r *noteRepository) Update(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Save(note).Error
}

func (r *noteRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Note{}, id).Error
}
