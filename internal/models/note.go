package models

import "time"

// Note is a private study note optionally anchored to a course or module.
type Note struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	CourseID  *uint     `json:"course_id"`
	ModuleID  *uint     `json:"module_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModuleFavorite marks a lesson as a favourite.
type ModuleFavorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_user_module_fav;not null" json:"user_id"`
	ModuleID  uint      `gorm:"uniqueIndex:idx_user_module_fav;not null" json:"module_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChapterFavorite marks a chapter as a favourite.
type ChapterFavorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_user_chapter_fav;not null" json:"user_id"`
	ChapterID uint      `gorm:"uniqueIndex:idx_user_chapter_fav;not null" json:"chapter_id"`
	CreatedAt time.Time `json:"created_at"`
}
