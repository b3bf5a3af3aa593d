package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/repository"
)

// Content failures callers can map to client errors.
var (
	ErrCourseNotFound  = errors.New("course not found")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrModuleNotFound  = errors.New("module not found")
	ErrInvalidQuiz     = errors.New("quiz payload does not match the quiz schema")
)

// quizSchema constrains quiz payloads stored on chapters and modules.
const quizSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["questions"],
	"properties": {
		"title": {"type": "string"},
		"questions": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["question", "type"],
				"properties": {
					"question": {"type": "string", "minLength": 1},
					"type": {"enum": ["multiple_choice", "open_ended", "true_false"]},
					"options": {"type": "array", "items": {"type": "string"}},
					"answer": {"type": ["string", "boolean", "null"]}
				}
			}
		}
	}
}`

// CourseService implements course, chapter and module management.
type CourseService interface {
	CreateCourse(ctx context.Context, creatorID string, req dto.CreateCourseRequest) (models.Course, error)
	GetCourse(ctx context.Context, id uint) (models.Course, error)
	ListCourses(ctx context.Context, filter repository.CourseFilter) (dto.CourseListResponse, error)
	UpdateCourse(ctx context.Context, id uint, req dto.UpdateCourseRequest) (models.Course, error)
	DeleteCourse(ctx context.Context, id uint) error

	CreateChapter(ctx context.Context, courseID uint, req dto.CreateChapterRequest) (models.Chapter, error)
	GetChapter(ctx context.Context, id uint) (models.Chapter, error)
	UpdateChapter(ctx context.Context, id uint, req dto.UpdateChapterRequest) (models.Chapter, error)
	DeleteChapter(ctx context.Context, id uint) error

	CreateModule(ctx context.Context, courseID uint, req dto.CreateModuleRequest) (models.Module, error)
	GetModule(ctx context.Context, id uint) (models.Module, error)
	UpdateModule(ctx context.Context, id uint, req dto.UpdateModuleRequest) (models.Module, error)
	DeleteModule(ctx context.Context, id uint) error
}

type courseService struct {
	repo     repository.CourseRepository
	schema   *jsonschema.Schema
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewCourseService builds the course service. The quiz schema is compiled
// once at startup; a broken schema is a programming error.
func NewCourseService(repo repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) CourseService {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("quiz.json", strings.NewReader(quizSchema)); err != nil {
		panic(err)
	}
	schema := compiler.MustCompile("quiz.json")

	return &courseService{
		repo:     repo,
		schema:   schema,
		validate: validate,
		logger:   logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) CreateCourse(ctx context.Context, creatorID string, req dto.CreateCourseRequest) (models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Course{}, err
	}

	course := models.Course{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Category:     req.Category,
		Difficulty:   req.Difficulty,
		CreatedBy:    creatorID,
		IsActive:     true,
	}
	if err := s.repo.CreateCourse(ctx, &course); err != nil {
		return models.Course{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Str("created_by", creatorID).Msg("course created")

	return course, nil
}

func (s *courseService) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	course, err := s.repo.GetCourseWithContent(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Course{}, ErrCourseNotFound
	}
	if err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (s *courseService) ListCourses(ctx context.Context, filter repository.CourseFilter) (dto.CourseListResponse, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	filter.Page = page

	courses, total, err := s.repo.ListCourses(ctx, filter)
	if err != nil {
		return dto.CourseListResponse{}, err
	}

	summaries := make([]dto.CourseSummaryResponse, 0, len(courses))
	for _, course := range courses {
		summaries = append(summaries, dto.CourseSummaryResponse{
			ID:           course.ID,
			Title:        course.Title,
			Description:  course.Description,
			ThumbnailURL: course.ThumbnailURL,
			Category:     course.Category,
			Difficulty:   course.Difficulty,
			TotalModules: course.TotalModules,
			IsActive:     course.IsActive,
			CreatedAt:    course.CreatedAt,
		})
	}

	return dto.CourseListResponse{
		Courses:  summaries,
		Total:    total,
		Page:     page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, id uint, req dto.UpdateCourseRequest) (models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Course{}, err
	}

	course, err := s.repo.GetCourse(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Course{}, ErrCourseNotFound
	}
	if err != nil {
		return models.Course{}, err
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.ThumbnailURL != nil {
		course.ThumbnailURL = *req.ThumbnailURL
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.Difficulty != nil {
		course.Difficulty = *req.Difficulty
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateCourse(ctx, &course); err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (s *courseService) DeleteCourse(ctx context.Context, id uint) error {
	if _, err := s.repo.GetCourse(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCourseNotFound
	} else if err != nil {
		return err
	}

	return s.repo.DeleteCourse(ctx, id)
}

func (s *courseService) CreateChapter(ctx context.Context, courseID uint, req dto.CreateChapterRequest) (models.Chapter, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Chapter{}, err
	}

	if _, err := s.repo.GetCourse(ctx, courseID); errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Chapter{}, ErrCourseNotFound
	} else if err != nil {
		return models.Chapter{}, err
	}

	if err := s.validateQuiz(req.Quiz); err != nil {
		return models.Chapter{}, err
	}

	chapter := models.Chapter{
		CourseID:      courseID,
		Title:         req.Title,
		CoverImageURL: req.CoverImageURL,
		Sequence:      req.Sequence,
		IsActive:      true,
		Quiz:          datatypes.JSONMap(req.Quiz),
	}
	if err := s.repo.CreateChapter(ctx, &chapter); err != nil {
		return models.Chapter{}, err
	}

	return chapter, nil
}

func (s *courseService) GetChapter(ctx context.Context, id uint) (models.Chapter, error) {
	chapter, err := s.repo.GetChapter(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Chapter{}, ErrChapterNotFound
	}
	if err != nil {
		return models.Chapter{}, err
	}

	return chapter, nil
}

func (s *courseService) UpdateChapter(ctx context.Context, id uint, req dto.UpdateChapterRequest) (models.Chapter, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Chapter{}, err
	}

	chapter, err := s.repo.GetChapter(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Chapter{}, ErrChapterNotFound
	}
	if err != nil {
		return models.Chapter{}, err
	}

	if req.Title != nil {
		chapter.Title = *req.Title
	}
	if req.CoverImageURL != nil {
		chapter.CoverImageURL = *req.CoverImageURL
	}
	if req.Sequence != nil {
		chapter.Sequence = *req.Sequence
	}
	if req.IsActive != nil {
		chapter.IsActive = *req.IsActive
	}
	if req.Quiz != nil {
		if err := s.validateQuiz(req.Quiz); err != nil {
			return models.Chapter{}, err
		}
		chapter.Quiz = datatypes.JSONMap(req.Quiz)
	}

	if err := s.repo.UpdateChapter(ctx, &chapter); err != nil {
		return models.Chapter{}, err
	}

	return chapter, nil
}

func (s *courseService) DeleteChapter(ctx context.Context, id uint) error {
	chapter, err := s.repo.GetChapter(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrChapterNotFound
	}
	if err != nil {
		return err
	}

	if err := s.repo.DeleteChapter(ctx, id); err != nil {
		return err
	}

	return s.repo.SyncModuleCount(ctx, chapter.CourseID)
}

func (s *courseService) CreateModule(ctx context.Context, courseID uint, req dto.CreateModuleRequest) (models.Module, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Module{}, err
	}

	if _, err := s.repo.GetCourse(ctx, courseID); errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Module{}, ErrCourseNotFound
	} else if err != nil {
		return models.Module{}, err
	}

	if err := s.validateQuiz(req.Quiz); err != nil {
		return models.Module{}, err
	}

	module := models.Module{
		CourseID:       courseID,
		ChapterID:      req.ChapterID,
		Title:          req.Title,
		Description:    req.Description,
		Content:        req.Content,
		KeyVerses:      req.KeyVerses,
		LessonStudy:    req.LessonStudy,
		ResponsePrompt: req.ResponsePrompt,
		FurtherStudy:   req.FurtherStudy,
		Resources:      datatypes.JSONMap(req.Resources),
		HeaderImageURL: req.HeaderImageURL,
		MediaURL:       req.MediaURL,
		Quiz:           datatypes.JSONMap(req.Quiz),
		Sequence:       req.Sequence,
		IsActive:       true,
	}
	if err := s.repo.CreateModule(ctx, &module); err != nil {
		return models.Module{}, err
	}

	if err := s.repo.SyncModuleCount(ctx, courseID); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to sync module count")
	}

	return module, nil
}

func (s *courseService) GetModule(ctx context.Context, id uint) (models.Module, error) {
	module, err := s.repo.GetModule(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Module{}, ErrModuleNotFound
	}
	if err != nil {
		return models.Module{}, err
	}

	return module, nil
}

func (s *courseService) UpdateModule(ctx context.Context, id uint, req dto.UpdateModuleRequest) (models.Module, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Module{}, err
	}

	module, err := s.repo.GetModule(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Module{}, ErrModuleNotFound
	}
	if err != nil {
		return models.Module{}, err
	}

	if req.ChapterID != nil {
		module.ChapterID = req.ChapterID
	}
	if req.Title != nil {
		module.Title = *req.Title
	}
	if req.Description != nil {
		module.Description = *req.Description
	}
	if req.Content != nil {
		module.Content = *req.Content
	}
	if req.KeyVerses != nil {
		module.KeyVerses = *req.KeyVerses
	}
	if req.LessonStudy != nil {
		module.LessonStudy = *req.LessonStudy
	}
	if req.ResponsePrompt != nil {
		module.ResponsePrompt = *req.ResponsePrompt
	}
	if req.FurtherStudy != nil {
		module.FurtherStudy = *req.FurtherStudy
	}
	if req.Resources != nil {
		module.Resources = datatypes.JSONMap(req.Resources)
	}
	if req.HeaderImageURL != nil {
		module.HeaderImageURL = *req.HeaderImageURL
	}
	if req.MediaURL != nil {
		module.MediaURL = *req.MediaURL
	}
	if req.Quiz != nil {
		if err := s.validateQuiz(req.Quiz); err != nil {
			return models.Module{}, err
		}
		module.Quiz = datatypes.JSONMap(req.Quiz)
	}
	if req.Sequence != nil {
		module.Sequence = *req.Sequence
	}
	if req.IsActive != nil {
		module.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateModule(ctx, &module); err != nil {
		return models.Module{}, err
	}

	if err := s.repo.SyncModuleCount(ctx, module.CourseID); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", module.CourseID).Msg("failed to sync module count")
	}

	return module, nil
}

func (s *courseService) DeleteModule(ctx context.Context, id uint) error {
	module, err := s.repo.GetModule(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrModuleNotFound
	}
	if err != nil {
		return err
	}

	if err := s.repo.DeleteModule(ctx, id); err != nil {
		return err
	}

	return s.repo.SyncModuleCount(ctx, module.CourseID)
}

func (s *courseService) validateQuiz(quiz map[string]any) error {
	if len(quiz) == 0 {
		return nil
	}

	if err := s.schema.Validate(map[string]any(quiz)); err != nil {
		return errors.Join(ErrInvalidQuiz, err)
	}

	return nil
}
