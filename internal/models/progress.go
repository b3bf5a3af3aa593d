package models

import "time"

// Module progress states.
const (
	ProgressNotStarted = "not_started"
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"
)

// CourseProgress tracks a user's position within one course.
type CourseProgress struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserID              string     `gorm:"type:uuid;uniqueIndex:idx_user_course;not null" json:"user_id"`
	CourseID            uint       `gorm:"uniqueIndex:idx_user_course;not null" json:"course_id"`
	LastVisitedModuleID *uint      `json:"last_visited_module_id"`
	ProgressPercentage  float64    `gorm:"not null;default:0" json:"progress_percentage"`
	StartedAt           time.Time  `gorm:"autoCreateTime" json:"started_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	LastVisitedAt       time.Time  `json:"last_visited_at"`
}

// ModuleProgress tracks completion of a single module.
type ModuleProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      string     `gorm:"type:uuid;uniqueIndex:idx_user_module;not null" json:"user_id"`
	CourseID    uint       `gorm:"index;not null" json:"course_id"`
	ModuleID    uint       `gorm:"uniqueIndex:idx_user_module;not null" json:"module_id"`
	Status      string     `gorm:"size:32;not null;default:not_started" json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// QuizResponse stores a user's answer to a module quiz question.
type QuizResponse struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;index;not null" json:"user_id"`
	CourseID     uint      `gorm:"not null" json:"course_id"`
	ModuleID     uint      `gorm:"index;not null" json:"module_id"`
	Question     string    `gorm:"type:text;not null" json:"question"`
	Answer       string    `gorm:"type:text;not null" json:"answer"`
	QuestionType string    `gorm:"size:50;not null" json:"question_type"`
	SubmittedAt  time.Time `gorm:"autoCreateTime" json:"submitted_at"`
}
