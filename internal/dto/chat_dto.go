package dto

import "time"

// SendMessageRequest posts a chat message into the sender's thread.
type SendMessageRequest struct {
	Content     string `json:"content" validate:"required,min=1,max=10000"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=text image file"`
	ThreadID    *uint  `json:"thread_id"`
}

// ChatMessageResponse is a stored chat message.
type ChatMessageResponse struct {
	ID          uint      `json:"id"`
	ThreadID    uint      `json:"thread_id"`
	SenderID    string    `json:"sender_id"`
	SenderType  string    `json:"sender_type"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	ReadStatus  bool      `json:"read_status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatThreadResponse is a conversation summary.
type ChatThreadResponse struct {
	ID          uint      `json:"id"`
	StudentID   string    `json:"student_id"`
	TeacherID   *string   `json:"teacher_id"`
	UnreadCount int64     `json:"unread_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationResponse is a stored notification.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
