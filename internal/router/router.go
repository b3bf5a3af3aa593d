package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/regod-app/regod-api/internal/config"
	"github.com/regod-app/regod-api/internal/handler"
	"github.com/regod-app/regod-api/internal/middleware"
	"github.com/regod-app/regod-api/internal/observability"
	"github.com/regod-app/regod-api/internal/rbac"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	AdminHandler        *handler.AdminHandler
	CourseHandler       *handler.CourseHandler
	ProgressHandler     *handler.ProgressHandler
	UserHandler         *handler.UserHandler
	TeacherCodeHandler  *handler.TeacherCodeHandler
	ChatHandler         *handler.ChatHandler
	NotificationHandler *handler.NotificationHandler
	UploadHandler       *handler.UploadHandler
	SeedHandler         *handler.SeedHandler
	Authenticate        fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	authenticate := deps.Authenticate
	if authenticate == nil {
		authenticate = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(auth.Group("", authenticate))
	}

	if deps.UserHandler != nil {
		user := api.Group("/user", authenticate)
		deps.UserHandler.Register(user)
	}

	if deps.CourseHandler != nil {
		courses := api.Group("/courses", authenticate)
		deps.CourseHandler.Register(courses)
		deps.CourseHandler.RegisterManage(courses.Group("", middleware.RequirePermission("course:write")))
	}

	if deps.ProgressHandler != nil {
		progress := api.Group("/progress", authenticate, middleware.RequirePermission("progress:read"))
		deps.ProgressHandler.Register(progress)
	}

	if deps.TeacherCodeHandler != nil {
		teacher := api.Group("/teacher", authenticate,
			middleware.RequireRole(rbac.RoleTeacher, rbac.RoleAdmin),
			middleware.RequirePermission("teacher:codes:manage"))
		deps.TeacherCodeHandler.RegisterTeacher(teacher)

		connect := api.Group("/connect", authenticate)
		deps.TeacherCodeHandler.RegisterStudent(connect)
	}

	if deps.ChatHandler != nil {
		chat := api.Group("/chat", authenticate, middleware.RequirePermission("chat:read"))
		deps.ChatHandler.Register(chat)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", authenticate)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.UploadHandler != nil {
		upload := api.Group("/upload", authenticate,
			middleware.RequirePermission("upload:write"),
			middleware.RateLimit("upload", 30, time.Minute))
		deps.UploadHandler.Register(upload)
	}

	if deps.AdminHandler != nil {
		admin := api.Group("/admin", authenticate,
			middleware.RequireRole(rbac.RoleAdmin),
			middleware.RequirePermission("admin:users:manage"))
		deps.AdminHandler.Register(admin)
	}

	if deps.SeedHandler != nil {
		seed := api.Group("/seed")
		deps.SeedHandler.Register(seed)
	}
}
