package dto

import "time"

// CreateNoteRequest creates a private study note.
type CreateNoteRequest struct {
	CourseID *uint  `json:"course_id"`
	ModuleID *uint  `json:"module_id"`
	Title    string `json:"title" validate:"omitempty,max=255"`
	Content  string `json:"content" validate:"required,min=1,max=50000"`
}

// UpdateNoteRequest patches a note.
type UpdateNoteRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Content *string `json:"content" validate:"omitempty,min=1,max=50000"`
}

// NoteResponse is a stored note.
type NoteResponse struct {
	ID        uint      `json:"id"`
	CourseID  *uint     `json:"course_id"`
	ModuleID  *uint     `json:"module_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FavoriteResponse lists favourite module and chapter IDs.
type FavoriteResponse struct {
	ModuleIDs  []uint `json:"module_ids"`
	ChapterIDs []uint `json:"chapter_ids"`
}
