package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

// AdminHandler wires account administration HTTP routes.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches admin endpoints to the router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/users", h.listUsers)
	router.Get("/users/:id", h.getUser)
	router.Post("/users/:id/roles", h.assignRole)
	router.Delete("/users/:id/roles", h.removeRole)
	router.Delete("/users/:id", h.deactivateUser)
	router.Get("/roles", h.listRoles)
	router.Post("/invite-teacher", h.inviteTeacher)
	router.Get("/links", h.listLinks)
	router.Post("/links", h.assignTeacher)
	router.Delete("/links/:id", h.removeLink)
}

func (h *AdminHandler) listUsers(c *fiber.Ctx) error {
	var filter dto.UserListFilter
	if err := c.QueryParser(&filter); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	users, err := h.service.ListUsers(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "users retrieved", users)
}

func (h *AdminHandler) getUser(c *fiber.Ctx) error {
	user, err := h.service.GetUser(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *AdminHandler) assignRole(c *fiber.Ctx) error {
	var req dto.RoleChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.AssignRole(c.Context(), userIDFromContext(c), c.Params("id"), req); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "role assigned", nil)
}

func (h *AdminHandler) removeRole(c *fiber.Ctx) error {
	var req dto.RoleChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.RemoveRole(c.Context(), c.Params("id"), req); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "role removed", nil)
}

func (h *AdminHandler) deactivateUser(c *fiber.Ctx) error {
	if err := h.service.DeactivateUser(c.Context(), userIDFromContext(c), c.Params("id")); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user deactivated", nil)
}

func (h *AdminHandler) listRoles(c *fiber.Ctx) error {
	roles, err := h.service.ListRoles(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roles retrieved", roles)
}

func (h *AdminHandler) inviteTeacher(c *fiber.Ctx) error {
	var req dto.InviteTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	invitation, err := h.service.InviteTeacher(c.Context(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "teacher invited", invitation)
}

func (h *AdminHandler) listLinks(c *fiber.Ctx) error {
	links, err := h.service.ListLinks(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "links retrieved", links)
}

func (h *AdminHandler) assignTeacher(c *fiber.Ctx) error {
	var req dto.AssignTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	link, err := h.service.AssignTeacher(c.Context(), userIDFromContext(c), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "teacher assigned", link)
}

func (h *AdminHandler) removeLink(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.RemoveLink(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "link removed", nil)
}

func (h *AdminHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoleNotFound),
		errors.Is(err, service.ErrLinkNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSelfDeactivation):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("admin request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
