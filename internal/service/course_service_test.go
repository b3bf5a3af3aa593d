package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/repository"
)

func newCourseService(t *testing.T) (CourseService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	svc := NewCourseService(repository.NewCourseRepository(db), testValidator(), testLogger())
	return svc, db
}

func validQuiz() map[string]any {
	return map[string]any{
		"questions": []any{
			map[string]any{
				"question": "What is the first book?",
				"type":     "multiple_choice",
				"options":  []any{"Genesis", "Exodus"},
				"answer":   "Genesis",
			},
		},
	}
}

func TestCreateCourseAndAddContent(t *testing.T) {
	svc, db := newCourseService(t)
	creator := createUser(t, db, "Admin", "admin@example.com")

	course, err := svc.CreateCourse(context.Background(), creator.ID, dto.CreateCourseRequest{
		Title:      "Foundations",
		Category:   "foundations",
		Difficulty: "beginner",
	})
	require.NoError(t, err)
	require.NotZero(t, course.ID)
	require.True(t, course.IsActive)

	chapter, err := svc.CreateChapter(context.Background(), course.ID, dto.CreateChapterRequest{
		Title:    "Week One",
		Sequence: 1,
	})
	require.NoError(t, err)

	chapterID := chapter.ID
	module, err := svc.CreateModule(context.Background(), course.ID, dto.CreateModuleRequest{
		ChapterID: &chapterID,
		Title:     "Day One",
		Content:   "Read the passage.",
		Quiz:      validQuiz(),
		Sequence:  1,
	})
	require.NoError(t, err)
	require.Equal(t, course.ID, module.CourseID)

	// Module counter tracks active modules.
	stored, err := svc.GetCourse(context.Background(), course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.TotalModules)
}

func TestCreateModuleRejectsMalformedQuiz(t *testing.T) {
	svc, db := newCourseService(t)
	creator := createUser(t, db, "Admin", "admin@example.com")

	course, err := svc.CreateCourse(context.Background(), creator.ID, dto.CreateCourseRequest{Title: "Foundations"})
	require.NoError(t, err)

	_, err = svc.CreateModule(context.Background(), course.ID, dto.CreateModuleRequest{
		Title: "Broken",
		Quiz: map[string]any{
			"questions": []any{
				map[string]any{
					"question": "Unsupported kind",
					"type":     "essay",
				},
			},
		},
		Sequence: 1,
	})
	require.ErrorIs(t, err, ErrInvalidQuiz)
}

func TestCreateModuleForUnknownCourse(t *testing.T) {
	svc, _ := newCourseService(t)

	_, err := svc.CreateModule(context.Background(), 999, dto.CreateModuleRequest{Title: "Orphan"})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestUpdateCoursePatchesFields(t *testing.T) {
	svc, db := newCourseService(t)
	creator := createUser(t, db, "Admin", "admin@example.com")

	course, err := svc.CreateCourse(context.Background(), creator.ID, dto.CreateCourseRequest{Title: "Foundations"})
	require.NoError(t, err)

	title := "Foundations II"
	inactive := false
	updated, err := svc.UpdateCourse(context.Background(), course.ID, dto.UpdateCourseRequest{
		Title:    &title,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, "Foundations II", updated.Title)
	require.False(t, updated.IsActive)
}

func TestDeleteModuleSyncsCount(t *testing.T) {
	svc, db := newCourseService(t)
	creator := createUser(t, db, "Admin", "admin@example.com")

	course, err := svc.CreateCourse(context.Background(), creator.ID, dto.CreateCourseRequest{Title: "Foundations"})
	require.NoError(t, err)

	module, err := svc.CreateModule(context.Background(), course.ID, dto.CreateModuleRequest{Title: "Day One", Sequence: 1})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteModule(context.Background(), module.ID))

	stored, err := svc.GetCourse(context.Background(), course.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.TotalModules)
}

func TestListCoursesFiltersInactive(t *testing.T) {
	svc, db := newCourseService(t)
	creator := createUser(t, db, "Admin", "admin@example.com")

	_, err := svc.CreateCourse(context.Background(), creator.ID, dto.CreateCourseRequest{Title: "Visible"})
	require.NoError(t, err)

	hidden, err := svc.CreateCourse(context.Background(), creator.ID, dto.CreateCourseRequest{Title: "Hidden"})
	require.NoError(t, err)
	inactive := false
	_, err = svc.UpdateCourse(context.Background(), hidden.ID, dto.UpdateCourseRequest{IsActive: &inactive})
	require.NoError(t, err)

	list, err := svc.ListCourses(context.Background(), repository.CourseFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Total)
	require.Len(t, list.Courses, 1)
	require.Equal(t, "Visible", list.Courses[0].Title)

	all, err := svc.ListCourses(context.Background(), repository.CourseFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 2, all.Total)
}

func TestGetUnknownCourse(t *testing.T) {
	svc, _ := newCourseService(t)

	_, err := svc.GetCourse(context.Background(), 42)
	require.ErrorIs(t, err, ErrCourseNotFound)
}
