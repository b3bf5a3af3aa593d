package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// ChatRepository persists chat threads and messages.
type ChatRepository interface {
	GetOrCreateThread(ctx context.Context, studentID string, teacherID *string) (models.ChatThread, error)
	GetThread(ctx context.Context, id uint) (models.ChatThread, error)
	ListThreadsByTeacher(ctx context.Context, teacherID string) ([]models.ChatThread, error)
	CreateMessage(ctx context.Context, message *models.ChatMessage) error
	ListMessages(ctx context.Context, threadID uint, limit int) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, threadID uint, readerID string) error
	CountUnread(ctx context.Context, threadID uint, readerID string) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs the chat repository.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) GetOrCreateThread(ctx context.Context, studentID string, teacherID *string) (models.ChatThread, error) {
	var thread models.ChatThread
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&thread).Error
	if err == nil {
		// Attach the teacher once an assignment exists.
		if thread.TeacherID == nil && teacherID != nil {
			thread.TeacherID = teacherID
			if err := r.db.WithContext(ctx).Save(&thread).Error; err != nil {
				return models.ChatThread{}, err
			}
		}

		return thread, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ChatThread{}, err
	}

	thread = models.ChatThread{StudentID: studentID, TeacherID: teacherID}
	if err := r.db.WithContext(ctx).Create(&thread).Error; err != nil {
		return models.ChatThread{}, err
	}

	return thread, nil
}

func (r *chatRepository) GetThread(ctx context.Context, id uint) (models.ChatThread, error) {
	var thread models.ChatThread
	if err := r.db.WithContext(ctx).First(&thread, id).Error; err != nil {
		return models.ChatThread{}, err
	}

	return thread, nil
}

func (r *chatRepository) ListThreadsByTeacher(ctx context.Context, teacherID string) ([]models.ChatThread, error) {
	var threads []models.ChatThread
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&threads).Error

	return threads, err
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *chatRepository) ListMessages(ctx context.Context, threadID uint, limit int) ([]models.ChatMessage, error) {
	query := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []models.ChatMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *chatRepository) MarkRead(ctx context.Context, threadID uint, readerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("thread_id = ? AND sender_id <> ? AND read_status = ?", threadID, readerID, false).
		Update("read_status", true).Error
}

func (r *chatRepository) CountUnread(ctx context.Context, threadID uint, readerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("thread_id = ? AND sender_id <> ? AND read_status = ?", threadID, readerID, false).
		Count(&count).Error

	return count, err
}
