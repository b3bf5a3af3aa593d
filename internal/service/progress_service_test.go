package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/repository"
)

func newProgressService(t *testing.T, cache *redis.Client) (ProgressService, CourseService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	courses := repository.NewCourseRepository(db)
	progress := NewProgressService(
		repository.NewProgressRepository(db),
		courses,
		repository.NewFavoriteRepository(db),
		cache,
		time.Minute,
		testValidator(),
		testLogger(),
	)
	courseSvc := NewCourseService(courses, testValidator(), testLogger())
	return progress, courseSvc, db
}

func seedCourseWithModules(t *testing.T, svc CourseService, creatorID string, modules int) (models.Course, []models.Module) {
	t.Helper()

	course, err := svc.CreateCourse(context.Background(), creatorID, dto.CreateCourseRequest{Title: "Foundations"})
	require.NoError(t, err)

	created := make([]models.Module, 0, modules)
	for i := 0; i < modules; i++ {
		module, err := svc.CreateModule(context.Background(), course.ID, dto.CreateModuleRequest{
			Title:    "Module",
			Sequence: i + 1,
		})
		require.NoError(t, err)
		created = append(created, module)
	}

	return course, created
}

func TestUpdateModuleProgressRecomputesPercentage(t *testing.T) {
	progress, courseSvc, db := newProgressService(t, nil)
	creator := createUser(t, db, "Admin", "admin@example.com")
	student := createUser(t, db, "Student", "student@example.com")
	course, modules := seedCourseWithModules(t, courseSvc, creator.ID, 4)

	result, err := progress.UpdateModuleProgress(context.Background(), student.ID, dto.UpdateModuleProgressRequest{
		CourseID: course.ID,
		ModuleID: modules[0].ID,
		Status:   models.ProgressCompleted,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.CompletedModules)
	require.Equal(t, 4, result.TotalModules)
	require.InDelta(t, 25.0, result.ProgressPercentage, 0.01)
	require.Nil(t, result.CompletedAt)
	require.Equal(t, &modules[0].ID, result.LastVisitedModuleID)
}

func TestCourseCompletion(t *testing.T) {
	progress, courseSvc, db := newProgressService(t, nil)
	creator := createUser(t, db, "Admin", "admin@example.com")
	student := createUser(t, db, "Student", "student@example.com")
	course, modules := seedCourseWithModules(t, courseSvc, creator.ID, 2)

	for _, module := range modules {
		_, err := progress.UpdateModuleProgress(context.Background(), student.ID, dto.UpdateModuleProgressRequest{
			CourseID: course.ID,
			ModuleID: module.ID,
			Status:   models.ProgressCompleted,
		})
		require.NoError(t, err)
	}

	result, err := progress.GetCourseProgress(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
	require.InDelta(t, 100.0, result.ProgressPercentage, 0.01)
	require.NotNil(t, result.CompletedAt)

	// Reopening a module clears the completion marker.
	_, err = progress.UpdateModuleProgress(context.Background(), student.ID, dto.UpdateModuleProgressRequest{
		CourseID: course.ID,
		ModuleID: modules[0].ID,
		Status:   models.ProgressInProgress,
	})
	require.NoError(t, err)

	result, err = progress.GetCourseProgress(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
	require.InDelta(t, 50.0, result.ProgressPercentage, 0.01)
	require.Equal(t, 1, result.CompletedModules)
	require.Nil(t, result.CompletedAt)
}

func TestUpdateModuleProgressRejectsMismatchedCourse(t *testing.T) {
	progress, courseSvc, db := newProgressService(t, nil)
	creator := createUser(t, db, "Admin", "admin@example.com")
	student := createUser(t, db, "Student", "student@example.com")
	_, modules := seedCourseWithModules(t, courseSvc, creator.ID, 1)
	other, err := courseSvc.CreateCourse(context.Background(), creator.ID, dto.CreateCourseRequest{Title: "Other"})
	require.NoError(t, err)

	_, err = progress.UpdateModuleProgress(context.Background(), student.ID, dto.UpdateModuleProgressRequest{
		CourseID: other.ID,
		ModuleID: modules[0].ID,
		Status:   models.ProgressCompleted,
	})
	require.ErrorIs(t, err, ErrModuleNotFound)
}

func TestSubmitQuizStoresAnswers(t *testing.T) {
	progress, courseSvc, db := newProgressService(t, nil)
	creator := createUser(t, db, "Admin", "admin@example.com")
	student := createUser(t, db, "Student", "student@example.com")
	course, modules := seedCourseWithModules(t, courseSvc, creator.ID, 1)

	err := progress.SubmitQuiz(context.Background(), student.ID, dto.SubmitQuizRequest{
		CourseID: course.ID,
		ModuleID: modules[0].ID,
		Answers: []dto.QuizAnswer{
			{Question: "Who wrote it?", Answer: "Moses", QuestionType: "multiple_choice"},
			{Question: "What stood out?", Answer: "The covenant", QuestionType: "open_ended"},
		},
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.QuizResponse{}).Where("user_id = ?", student.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestDashboardAggregatesAndCaches(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	progress, courseSvc, db := newProgressService(t, cache)
	creator := createUser(t, db, "Admin", "admin@example.com")
	student := createUser(t, db, "Student", "student@example.com")
	course, modules := seedCourseWithModules(t, courseSvc, creator.ID, 2)

	_, err = progress.UpdateModuleProgress(context.Background(), student.ID, dto.UpdateModuleProgressRequest{
		CourseID: course.ID,
		ModuleID: modules[0].ID,
		Status:   models.ProgressCompleted,
	})
	require.NoError(t, err)

	dashboard, err := progress.Dashboard(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, dashboard.Courses, 1)
	require.Equal(t, 1, dashboard.ActiveCourses)
	require.Equal(t, 0, dashboard.CompletedCourses)
	require.Equal(t, 1, dashboard.CompletedModules)
	require.True(t, mini.Exists("dashboard:"+student.ID))

	// A further progress write invalidates the cached aggregate.
	_, err = progress.UpdateModuleProgress(context.Background(), student.ID, dto.UpdateModuleProgressRequest{
		CourseID: course.ID,
		ModuleID: modules[1].ID,
		Status:   models.ProgressCompleted,
	})
	require.NoError(t, err)
	require.False(t, mini.Exists("dashboard:"+student.ID))

	dashboard, err = progress.Dashboard(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, 1, dashboard.CompletedCourses)
	require.Equal(t, 2, dashboard.CompletedModules)
}
