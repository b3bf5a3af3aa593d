package models

import "time"

// Chat message sender types.
const (
	SenderTypeStudent = "student"
	SenderTypeTeacher = "teacher"
)

// ChatThread is a conversation between a student and their assigned teacher.
type ChatThread struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	StudentID string        `gorm:"type:uuid;index;not null" json:"student_id"`
	TeacherID *string       `gorm:"type:uuid;index" json:"teacher_id"`
	CreatedAt time.Time     `json:"created_at"`
	Messages  []ChatMessage `gorm:"foreignKey:ThreadID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"messages,omitempty"`
}

// ChatMessage is a single payload inside a thread.
type ChatMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ThreadID    uint      `gorm:"index;not null" json:"thread_id"`
	SenderID    string    `gorm:"type:uuid;index;not null" json:"sender_id"`
	SenderType  string    `gorm:"size:32;not null;default:student" json:"sender_type"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	MessageType string    `gorm:"size:32;not null;default:text" json:"message_type"`
	ReadStatus  bool      `gorm:"not null;default:false" json:"read_status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification is a stored per-user notification.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Type      string    `gorm:"size:64" json:"type"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
