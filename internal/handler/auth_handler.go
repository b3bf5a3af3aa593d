package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/auth"
	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/identity"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

// AuthHandler wires authentication HTTP routes.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches public authentication endpoints.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/check-user", h.checkUser)
	router.Post("/register", h.register)
	router.Post("/login", h.login)
	router.Post("/verify", h.verify)
	router.Post("/refresh", h.refresh)
	router.Post("/exchange", h.exchange)
}

// RegisterProtected attaches endpoints that require an authenticated caller.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Post("/logout", h.logout)
}

func (h *AuthHandler) checkUser(c *fiber.Ctx) error {
	var req dto.CheckUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.CheckUser(c.Context(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user checked", result)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := h.service.Register(c.Context(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account registered", profile)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	tokens, err := h.service.Login(c.Context(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "login successful", tokens)
}

func (h *AuthHandler) verify(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	tokens, err := h.service.VerifyEmail(c.Context(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "email verified", tokens)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	tokens, err := h.service.Refresh(c.Context(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "tokens refreshed", tokens)
}

func (h *AuthHandler) exchange(c *fiber.Ctx) error {
	var req dto.ExchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	tokens, err := h.service.Exchange(c.Context(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "token exchanged", tokens)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendErrorCode(c, fiber.StatusUnauthorized, auth.CodeUnauthenticated, "authentication required")
	}

	if err := h.service.Logout(c.Context(), userID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidVerifyCode),
		errors.Is(err, service.ErrRefreshRejected):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountNotVerified):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrTooManyAttempts):
		return utils.SendError(c, fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, identity.ErrUserInactive):
		return utils.SendErrorCode(c, fiber.StatusUnauthorized, "USER_INACTIVE", "account is deactivated")
	case errors.Is(err, identity.ErrUserNotFound):
		return utils.SendErrorCode(c, fiber.StatusUnauthorized, "USER_NOT_FOUND", "user not found")
	case auth.IsInfrastructureFailure(err):
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, auth.ErrorCode(err), "verification temporarily unavailable")
	case isAuthError(err):
		return utils.SendErrorCode(c, fiber.StatusUnauthorized, auth.ErrorCode(err), err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("auth request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
