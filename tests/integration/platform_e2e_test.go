package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/regod-app/regod-api/internal/auth"
	"github.com/regod-app/regod-api/internal/config"
	"github.com/regod-app/regod-api/internal/database"
	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/handler"
	"github.com/regod-app/regod-api/internal/identity"
	"github.com/regod-app/regod-api/internal/middleware"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
	"github.com/regod-app/regod-api/internal/router"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

const e2eSecret = "integration-test-secret"

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

func setupApp(t *testing.T) testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, rbac.Initialize(db))

	mini := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	codeRepo := repository.NewTeacherCodeRepository(db)
	linkRepo := repository.NewTeacherLinkRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	noteRepo := repository.NewNoteRepository(db)

	keys := auth.NewKeyCache("http://127.0.0.1:1/jwks", time.Minute, logger)
	verifier := auth.NewVerifier(e2eSecret, keys, nil, logger)
	resolver := identity.NewResolver(userRepo, roleRepo, logger)

	authService := service.NewAuthService(userRepo, roleRepo, tokenRepo, verifier, resolver, cache, e2eSecret, 15*time.Minute, 24*time.Hour, validate, logger)
	profileService := service.NewProfileService(userRepo, tokenRepo, validate, logger)
	codeService := service.NewTeacherCodeService(codeRepo, linkRepo, userRepo, roleRepo, validate, logger)
	adminService := service.NewAdminService(userRepo, roleRepo, linkRepo, codeService, nil, validate, logger)
	courseService := service.NewCourseService(courseRepo, validate, logger)
	progressService := service.NewProgressService(progressRepo, courseRepo, favoriteRepo, cache, time.Minute, validate, logger)
	noteService := service.NewNoteService(noteRepo, favoriteRepo, courseRepo, validate, logger)
	seedService := service.NewSeedService(courseRepo, true, "seed-token", logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	cfg := config.Config{AppName: "Regod API Test", JWTSecret: e2eSecret, SeedEnabled: true, SeedToken: "seed-token"}
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:        handler.NewAuthHandler(authService, logger),
		AdminHandler:       handler.NewAdminHandler(adminService, logger),
		CourseHandler:      handler.NewCourseHandler(courseService, logger),
		ProgressHandler:    handler.NewProgressHandler(progressService, logger),
		UserHandler:        handler.NewUserHandler(profileService, noteService, logger),
		TeacherCodeHandler: handler.NewTeacherCodeHandler(codeService, logger),
		SeedHandler:        handler.NewSeedHandler(seedService, logger),
		Authenticate:       middleware.Authenticate(verifier, resolver, logger),
	})

	return testEnv{app: app, db: db}
}

// createAccount inserts a verified user with the given role directly, the way
// an operator would bootstrap staff accounts.
func createAccount(t *testing.T, db *gorm.DB, name, email, password, role string) models.User {
	t.Helper()

	hashed, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := models.User{
		Email:          &email,
		Name:           name,
		HashedPassword: &hashed,
		IsActive:       true,
		IsVerified:     true,
	}
	require.NoError(t, db.Create(&user).Error)

	var dbRole models.Role
	require.NoError(t, db.Where("name = ?", role).First(&dbRole).Error)
	require.NoError(t, db.Model(&user).Association("Roles").Append(&dbRole))

	return user
}

func request(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) (int, utils.APIResponse) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()

	status, body := request(t, app, "POST", "/api/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, fiber.StatusOK, status)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	token, ok := data["access_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func dataMap(t *testing.T, body utils.APIResponse) map[string]interface{} {
	t.Helper()
	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	return data
}

func TestPlatformEndToEnd(t *testing.T) {
	env := setupApp(t)

	// A new student registers, verifies, and signs in.
	status, _ := request(t, env.app, "POST", "/api/auth/register", "", dto.RegisterRequest{
		Email:    "student@example.com",
		Name:     "Student One",
		Password: "correct horse battery",
	})
	require.Equal(t, fiber.StatusCreated, status)

	var student models.User
	require.NoError(t, env.db.Where("email = ?", "student@example.com").First(&student).Error)
	require.NotEmpty(t, student.VerifyCode)

	status, _ = request(t, env.app, "POST", "/api/auth/verify", "", dto.VerifyEmailRequest{
		Email: "student@example.com",
		Code:  student.VerifyCode,
	})
	require.Equal(t, fiber.StatusOK, status)

	studentToken := login(t, env.app, "student@example.com", "correct horse battery")

	// The student cannot reach staff surfaces.
	status, _ = request(t, env.app, "GET", "/api/admin/users", studentToken, nil)
	require.Equal(t, fiber.StatusForbidden, status)
	status, _ = request(t, env.app, "GET", "/api/teacher/my-code", studentToken, nil)
	require.Equal(t, fiber.StatusForbidden, status)

	// An administrator publishes a course with two lessons.
	createAccount(t, env.db, "Admin", "admin@example.com", "admin password!", rbac.RoleAdmin)
	adminToken := login(t, env.app, "admin@example.com", "admin password!")

	status, body := request(t, env.app, "POST", "/api/courses", adminToken, dto.CreateCourseRequest{
		Title:      "Foundations",
		Difficulty: "beginner",
	})
	require.Equal(t, fiber.StatusCreated, status)
	courseID := uint(dataMap(t, body)["id"].(float64))

	moduleIDs := make([]uint, 0, 2)
	for i := 1; i <= 2; i++ {
		status, body = request(t, env.app, "POST", fmt.Sprintf("/api/courses/%d/modules", courseID), adminToken, dto.CreateModuleRequest{
			Title: fmt.Sprintf("Lesson %d", i),
		})
		require.Equal(t, fiber.StatusCreated, status)
		moduleIDs = append(moduleIDs, uint(dataMap(t, body)["id"].(float64)))
	}

	// Course management stays closed to students.
	status, _ = request(t, env.app, "POST", "/api/courses", studentToken, dto.CreateCourseRequest{Title: "Not allowed"})
	require.Equal(t, fiber.StatusForbidden, status)

	// A teacher shares their standing access code and the student redeems it.
	teacher := createAccount(t, env.db, "Teacher", "teacher@example.com", "teacher password!", rbac.RoleTeacher)
	teacherToken := login(t, env.app, "teacher@example.com", "teacher password!")

	// Teachers can publish courses of their own.
	status, body = request(t, env.app, "POST", "/api/courses", teacherToken, dto.CreateCourseRequest{
		Title:       "Sight Reading",
		Description: "Reading sheet music at tempo",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, body = request(t, env.app, "GET", "/api/teacher/my-code", teacherToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	accessCode := dataMap(t, body)["code"].(string)
	require.Len(t, accessCode, 8)

	status, body = request(t, env.app, "POST", "/api/connect/redeem", studentToken, dto.RedeemCodeRequest{Code: accessCode})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, teacher.ID, dataMap(t, body)["teacher_id"])

	// Redeeming the same code again is reported as a conflict.
	status, _ = request(t, env.app, "POST", "/api/connect/redeem", studentToken, dto.RedeemCodeRequest{Code: accessCode})
	require.Equal(t, fiber.StatusConflict, status)

	status, body = request(t, env.app, "GET", "/api/connect/access", studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, true, dataMap(t, body)["has_access"])

	// The teacher now sees the student on their roster.
	status, body = request(t, env.app, "GET", "/api/teacher/students", teacherToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	roster, ok := body.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, roster, 1)

	// The student works through the course.
	status, body = request(t, env.app, "POST", "/api/progress/modules", studentToken, dto.UpdateModuleProgressRequest{
		CourseID: courseID,
		ModuleID: moduleIDs[0],
		Status:   "completed",
	})
	require.Equal(t, fiber.StatusOK, status)
	require.InDelta(t, 50.0, dataMap(t, body)["progress_percentage"].(float64), 0.01)

	status, body = request(t, env.app, "POST", "/api/progress/modules", studentToken, dto.UpdateModuleProgressRequest{
		CourseID: courseID,
		ModuleID: moduleIDs[1],
		Status:   "completed",
	})
	require.Equal(t, fiber.StatusOK, status)
	require.InDelta(t, 100.0, dataMap(t, body)["progress_percentage"].(float64), 0.01)

	status, body = request(t, env.app, "GET", "/api/progress/dashboard", studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	dashboard := dataMap(t, body)
	require.Equal(t, float64(1), dashboard["completed_courses"])
	require.Equal(t, float64(2), dashboard["completed_modules"])

	// Unauthenticated requests never reach protected surfaces.
	status, _ = request(t, env.app, "GET", "/api/progress/dashboard", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestSeedEndpointRequiresToken(t *testing.T) {
	env := setupApp(t)

	payload := map[string]interface{}{
		"items": []models.Course{{Title: "Seeded Course", CreatedBy: "seeder", IsActive: true}},
	}

	req := httptest.NewRequest("POST", "/api/seed/courses", encodeJSON(t, payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/seed/courses", encodeJSON(t, payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Seed-Token", "seed-token")
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, env.db.Model(&models.Course{}).Where("title = ?", "Seeded Course").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func encodeJSON(t *testing.T, payload interface{}) *bytes.Reader {
	t.Helper()
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(encoded)
}
