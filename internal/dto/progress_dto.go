package dto

import "time"

// UpdateModuleProgressRequest records a module progress transition.
type UpdateModuleProgressRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	ModuleID uint   `json:"module_id" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=not_started in_progress completed"`
}

// SubmitQuizRequest stores answers to a module quiz.
type SubmitQuizRequest struct {
	CourseID uint         `json:"course_id" validate:"required"`
	ModuleID uint         `json:"module_id" validate:"required"`
	Answers  []QuizAnswer `json:"answers" validate:"required,min=1,dive"`
}

// QuizAnswer is a single question response.
type QuizAnswer struct {
	Question     string `json:"question" validate:"required"`
	Answer       string `json:"answer" validate:"required"`
	QuestionType string `json:"question_type" validate:"required,max=50"`
}

// CourseProgressResponse reports a user's standing in one course.
type CourseProgressResponse struct {
	CourseID            uint       `json:"course_id"`
	CourseTitle         string     `json:"course_title,omitempty"`
	ProgressPercentage  float64    `json:"progress_percentage"`
	CompletedModules    int        `json:"completed_modules"`
	TotalModules        int        `json:"total_modules"`
	LastVisitedModuleID *uint      `json:"last_visited_module_id"`
	StartedAt           time.Time  `json:"started_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	LastVisitedAt       time.Time  `json:"last_visited_at"`
}

// DashboardResponse aggregates a student's learning activity.
type DashboardResponse struct {
	Courses          []CourseProgressResponse `json:"courses"`
	CompletedCourses int                      `json:"completed_courses"`
	ActiveCourses    int                      `json:"active_courses"`
	CompletedModules int                      `json:"completed_modules"`
	FavoriteModules  int                      `json:"favorite_modules"`
}

// ModuleProgressResponse reports one module's state for a user.
type ModuleProgressResponse struct {
	ModuleID    uint       `json:"module_id"`
	CourseID    uint       `json:"course_id"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
}
