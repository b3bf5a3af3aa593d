package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

// TeacherCodeHandler wires access-code HTTP routes.
type TeacherCodeHandler struct {
	service service.TeacherCodeService
	logger  zerolog.Logger
}

// NewTeacherCodeHandler constructs the handler.
func NewTeacherCodeHandler(service service.TeacherCodeService, logger zerolog.Logger) *TeacherCodeHandler {
	return &TeacherCodeHandler{
		service: service,
		logger:  logger.With().Str("component", "teacher_code_handler").Logger(),
	}
}

// RegisterTeacher attaches code-management endpoints for teachers.
func (h *TeacherCodeHandler) RegisterTeacher(router fiber.Router) {
	router.Get("/my-code", h.myCode)
	router.Get("/codes", h.list)
	router.Post("/codes", h.issue)
	router.Delete("/codes/:id", h.revoke)
	router.Get("/students", h.students)
	router.Get("/students/:studentId/assigned", h.checkAssignment)
}

// RegisterStudent attaches redemption endpoints for students.
func (h *TeacherCodeHandler) RegisterStudent(router fiber.Router) {
	router.Post("/redeem", h.redeem)
	router.Post("/complete-teacher-signup", h.completeTeacherSignup)
	router.Get("/access", h.access)
}

func (h *TeacherCodeHandler) myCode(c *fiber.Ctx) error {
	code, err := h.service.MyCode(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "access code retrieved", code)
}

func (h *TeacherCodeHandler) list(c *fiber.Ctx) error {
	codes, err := h.service.List(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "access codes retrieved", codes)
}

func (h *TeacherCodeHandler) issue(c *fiber.Ctx) error {
	var req dto.IssueCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	code, err := h.service.Issue(c.Context(), userIDFromContext(c), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "access code issued", code)
}

func (h *TeacherCodeHandler) revoke(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	isAdmin := userRoleFromContext(c) == "admin"
	if err := h.service.Revoke(c.Context(), userIDFromContext(c), id, isAdmin); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "access code revoked", nil)
}

func (h *TeacherCodeHandler) students(c *fiber.Ctx) error {
	links, err := h.service.ListStudents(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "students retrieved", links)
}

func (h *TeacherCodeHandler) checkAssignment(c *fiber.Ctx) error {
	studentID := c.Params("studentId")
	if studentID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	assigned, err := h.service.CheckAssignment(c.Context(), userIDFromContext(c), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment checked", fiber.Map{"assigned": assigned})
}

func (h *TeacherCodeHandler) redeem(c *fiber.Ctx) error {
	var req dto.RedeemCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.RedeemAccessCode(c.Context(), userIDFromContext(c), req.Code)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "access code redeemed", result)
}

func (h *TeacherCodeHandler) completeTeacherSignup(c *fiber.Ctx) error {
	var req dto.TeacherOnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.RedeemTeacherOnboardingCode(c.Context(), userIDFromContext(c), req.Code); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "teacher signup completed", nil)
}

func (h *TeacherCodeHandler) access(c *fiber.Ctx) error {
	access, err := h.service.StudentAccess(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "access retrieved", access)
}

func (h *TeacherCodeHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err), errors.Is(err, service.ErrNegativeMaxUses):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCodeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCodeInactive),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrCodeExhausted):
		return utils.SendError(c, fiber.StatusGone, err.Error())
	case errors.Is(err, service.ErrCodeAlreadyRedeemed),
		errors.Is(err, service.ErrAlreadyLinked):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCodeNotOwned):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("teacher code request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
