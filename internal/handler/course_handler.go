package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/repository"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

// CourseHandler wires course content HTTP routes.
type CourseHandler struct {
	service service.CourseService
	logger  zerolog.Logger
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(service service.CourseService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service: service,
		logger:  logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register attaches read endpoints available to every authenticated user.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/chapters", h.listChapters)
	router.Get("/chapters/:chapterId", h.getChapter)
	router.Get("/modules/:moduleId", h.getModule)
}

// RegisterManage attaches write endpoints guarded by course management permission.
func (h *CourseHandler) RegisterManage(router fiber.Router) {
	router.Post("", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/chapters", h.createChapter)
	router.Patch("/chapters/:chapterId", h.updateChapter)
	router.Delete("/chapters/:chapterId", h.deleteChapter)
	router.Post("/:id/modules", h.createModule)
	router.Patch("/modules/:moduleId", h.updateModule)
	router.Delete("/modules/:moduleId", h.deleteModule)
}

func (h *CourseHandler) list(c *fiber.Ctx) error {
	filter := repository.CourseFilter{
		Page:       parseQueryInt(c, "page"),
		PageSize:   parseQueryInt(c, "page_size"),
		Category:   strings.TrimSpace(c.Query("category")),
		Difficulty: strings.TrimSpace(c.Query("difficulty")),
		Search:     strings.TrimSpace(c.Query("search")),
		ActiveOnly: userRoleFromContext(c) != "admin",
	}

	courses, err := h.service.ListCourses(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *CourseHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	course, err := h.service.GetCourse(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) create(c *fiber.Ctx) error {
	var req dto.CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.service.CreateCourse(c.Context(), userIDFromContext(c), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CourseHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.service.UpdateCourse(c.Context(), id, req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course updated", course)
}

func (h *CourseHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteCourse(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course deleted", nil)
}

func (h *CourseHandler) listChapters(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	course, err := h.service.GetCourse(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chapters retrieved", course.Chapters)
}

func (h *CourseHandler) getChapter(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "chapterId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	chapter, err := h.service.GetChapter(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chapter retrieved", chapter)
}

func (h *CourseHandler) createChapter(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.CreateChapterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	chapter, err := h.service.CreateChapter(c.Context(), id, req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "chapter created", chapter)
}

func (h *CourseHandler) updateChapter(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "chapterId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.UpdateChapterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	chapter, err := h.service.UpdateChapter(c.Context(), id, req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chapter updated", chapter)
}

func (h *CourseHandler) deleteChapter(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "chapterId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteChapter(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chapter deleted", nil)
}

func (h *CourseHandler) getModule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "moduleId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	module, err := h.service.GetModule(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module retrieved", module)
}

func (h *CourseHandler) createModule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.CreateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	module, err := h.service.CreateModule(c.Context(), id, req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "module created", module)
}

func (h *CourseHandler) updateModule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "moduleId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.UpdateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	module, err := h.service.UpdateModule(c.Context(), id, req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module updated", module)
}

func (h *CourseHandler) deleteModule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "moduleId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteModule(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module deleted", nil)
}

func (h *CourseHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidQuiz):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrChapterNotFound),
		errors.Is(err, service.ErrModuleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("course request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
