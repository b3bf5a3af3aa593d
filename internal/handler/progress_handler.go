package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

// ProgressHandler wires learning progress HTTP routes.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register attaches progress endpoints to the router group.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Post("/modules", h.updateModule)
	router.Get("/courses/:courseId", h.courseProgress)
	router.Get("/courses/:courseId/modules", h.moduleProgress)
	router.Post("/quiz", h.submitQuiz)
}

func (h *ProgressHandler) dashboard(c *fiber.Ctx) error {
	dashboard, err := h.service.Dashboard(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

func (h *ProgressHandler) updateModule(c *fiber.Ctx) error {
	var req dto.UpdateModuleProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.UpdateModuleProgress(c.Context(), userIDFromContext(c), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "progress updated", progress)
}

func (h *ProgressHandler) courseProgress(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	progress, err := h.service.GetCourseProgress(c.Context(), userIDFromContext(c), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course progress retrieved", progress)
}

func (h *ProgressHandler) moduleProgress(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	entries, err := h.service.ListModuleProgress(c.Context(), userIDFromContext(c), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module progress retrieved", entries)
}

func (h *ProgressHandler) submitQuiz(c *fiber.Ctx) error {
	var req dto.SubmitQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SubmitQuiz(c.Context(), userIDFromContext(c), req); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz submitted", nil)
}

func (h *ProgressHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrModuleNotFound),
		errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("progress request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
