package dto

import "time"

// CreateCourseRequest creates a course shell.
type CreateCourseRequest struct {
	Title        string `json:"title" validate:"required,min=3,max=255"`
	Description  string `json:"description" validate:"omitempty,max=10000"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url"`
	Category     string `json:"category" validate:"omitempty,max=64"`
	Difficulty   string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// UpdateCourseRequest patches course fields.
type UpdateCourseRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description  *string `json:"description" validate:"omitempty,max=10000"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url"`
	Category     *string `json:"category" validate:"omitempty,max=64"`
	Difficulty   *string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	IsActive     *bool   `json:"is_active"`
}

// CreateChapterRequest adds a chapter to a course.
type CreateChapterRequest struct {
	Title         string         `json:"title" validate:"required,min=1,max=255"`
	CoverImageURL string         `json:"cover_image_url" validate:"omitempty,url"`
	Sequence      int            `json:"sequence" validate:"gte=0"`
	Quiz          map[string]any `json:"quiz"`
}

// UpdateChapterRequest patches chapter fields.
type UpdateChapterRequest struct {
	Title         *string        `json:"title" validate:"omitempty,min=1,max=255"`
	CoverImageURL *string        `json:"cover_image_url" validate:"omitempty,url"`
	Sequence      *int           `json:"sequence" validate:"omitempty,gte=0"`
	IsActive      *bool          `json:"is_active"`
	Quiz          map[string]any `json:"quiz"`
}

// CreateModuleRequest adds a lesson to a course.
type CreateModuleRequest struct {
	ChapterID      *uint          `json:"chapter_id"`
	Title          string         `json:"title" validate:"required,min=1,max=255"`
	Description    string         `json:"description" validate:"omitempty,max=10000"`
	Content        string         `json:"content" validate:"omitempty"`
	KeyVerses      string         `json:"key_verses"`
	LessonStudy    string         `json:"lesson_study"`
	ResponsePrompt string         `json:"response_prompt"`
	FurtherStudy   string         `json:"further_study"`
	Resources      map[string]any `json:"resources"`
	HeaderImageURL string         `json:"header_image_url" validate:"omitempty,url"`
	MediaURL       string         `json:"media_url" validate:"omitempty,url"`
	Quiz           map[string]any `json:"quiz"`
	Sequence       int            `json:"sequence" validate:"gte=0"`
}

// UpdateModuleRequest patches lesson fields.
type UpdateModuleRequest struct {
	ChapterID      *uint          `json:"chapter_id"`
	Title          *string        `json:"title" validate:"omitempty,min=1,max=255"`
	Description    *string        `json:"description" validate:"omitempty,max=10000"`
	Content        *string        `json:"content"`
	KeyVerses      *string        `json:"key_verses"`
	LessonStudy    *string        `json:"lesson_study"`
	ResponsePrompt *string        `json:"response_prompt"`
	FurtherStudy   *string        `json:"further_study"`
	Resources      map[string]any `json:"resources"`
	HeaderImageURL *string        `json:"header_image_url" validate:"omitempty,url"`
	MediaURL       *string        `json:"media_url" validate:"omitempty,url"`
	Quiz           map[string]any `json:"quiz"`
	Sequence       *int           `json:"sequence" validate:"omitempty,gte=0"`
	IsActive       *bool          `json:"is_active"`
}

// CourseSummaryResponse is the catalogue view of a course.
type CourseSummaryResponse struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Category     string    `json:"category"`
	Difficulty   string    `json:"difficulty"`
	TotalModules int       `json:"total_modules"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CourseListResponse is a paginated set of courses.
type CourseListResponse struct {
	Courses  []CourseSummaryResponse `json:"courses"`
	Total    int64                   `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}
