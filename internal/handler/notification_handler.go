package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register binds notification routes under the provided router group.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/unread-count", h.unreadCount)
	router.Post("/read-all", h.markAllRead)
	router.Post("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	unreadOnly := c.QueryBool("unread_only", false)

	notifications, err := h.service.List(c.Context(), userIDFromContext(c), unreadOnly)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "notifications retrieved", notifications)
}

func (h *NotificationHandler) unreadCount(c *fiber.Ctx) error {
	count, err := h.service.UnreadCount(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "unread count retrieved", fiber.Map{"count": count})
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.MarkRead(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "notification marked read", nil)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	if err := h.service.MarkAllRead(c.Context(), userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "notifications marked read", nil)
}

func (h *NotificationHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("notification request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
