package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/middleware"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

// ChatHandler wires conversation endpoints including the websocket upgrade.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("/thread", h.myThread)
	router.Get("/threads", h.teacherThreads)
	router.Get("/threads/:threadId/messages", h.history)
	router.Post("/messages", h.send)
	router.Post("/threads/:threadId/read", h.markRead)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *ChatHandler) myThread(c *fiber.Ctx) error {
	thread, err := h.service.MyThread(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "thread retrieved", thread)
}

func (h *ChatHandler) teacherThreads(c *fiber.Ctx) error {
	threads, err := h.service.TeacherThreads(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "threads retrieved", threads)
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	threadID, err := parseUintParam(c, "threadId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	messages, err := h.service.History(c.Context(), userIDFromContext(c), threadID, parseQueryInt(c, "limit"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "messages retrieved", messages)
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Send(c.Context(), userIDFromContext(c), userRoleFromContext(c), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *ChatHandler) markRead(c *fiber.Ctx) error {
	threadID, err := parseUintParam(c, "threadId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.MarkRead(c.Context(), userIDFromContext(c), threadID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "messages marked read", nil)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	threadID, err := service.ParseThreadID(strings.TrimSpace(conn.Query("thread_id")))
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "thread_id required"))
		_ = conn.Close()
		return
	}

	role, _ := conn.Locals("user_role").(string)
	correlation, _ := conn.Locals("correlation_id").(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.ChatConnectionOptions{
		UserID:        userID,
		Role:          role,
		ThreadID:      threadID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Uint("thread_id", threadID).Msg("chat websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Uint("thread_id", threadID).Msg("chat websocket disconnected")
}

func (h *ChatHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err), errors.Is(err, service.ErrEmptyMessage):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrThreadNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrThreadForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNoTeacherAssigned):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("chat request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
