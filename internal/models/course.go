package models

import (
	"time"

	"gorm.io/datatypes"
)

// Course is the top-level content container.
type Course struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255;index;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	ThumbnailURL string    `gorm:"size:512" json:"thumbnail_url"`
	Category     string    `gorm:"size:64" json:"category"`
	Difficulty   string    `gorm:"size:32" json:"difficulty"`
	TotalModules int       `gorm:"not null;default:0" json:"total_modules"`
	CreatedBy    string    `gorm:"type:uuid;not null" json:"created_by"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Chapters     []Chapter `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"chapters,omitempty"`
	Modules      []Module  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"modules,omitempty"`
}

// Chapter groups modules inside a course.
type Chapter struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	CourseID      uint              `gorm:"index;not null" json:"course_id"`
	Title         string            `gorm:"size:255;not null" json:"title"`
	CoverImageURL string            `gorm:"size:512" json:"cover_image_url"`
	Sequence      int               `gorm:"not null;default:0" json:"sequence"`
	IsActive      bool              `gorm:"not null;default:true" json:"is_active"`
	Quiz          datatypes.JSONMap `gorm:"type:json" json:"quiz"`
	Modules       []Module          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"modules,omitempty"`
}

// Module is a single lesson page.
type Module struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	CourseID       uint              `gorm:"index;not null" json:"course_id"`
	ChapterID      *uint             `gorm:"index" json:"chapter_id"`
	Title          string            `gorm:"size:255;index;not null" json:"title"`
	Description    string            `gorm:"type:text" json:"description"`
	Content        string            `gorm:"type:text" json:"content"`
	KeyVerses      string            `gorm:"type:text" json:"key_verses"`
	LessonStudy    string            `gorm:"type:text" json:"lesson_study"`
	ResponsePrompt string            `gorm:"type:text" json:"response_prompt"`
	FurtherStudy   string            `gorm:"type:text" json:"further_study"`
	Resources      datatypes.JSONMap `gorm:"type:json" json:"resources"`
	HeaderImageURL string            `gorm:"size:512" json:"header_image_url"`
	MediaURL       string            `gorm:"size:512" json:"media_url"`
	Quiz           datatypes.JSONMap `gorm:"type:json" json:"quiz"`
	Sequence       int               `gorm:"not null;default:0" json:"sequence"`
	IsActive       bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
