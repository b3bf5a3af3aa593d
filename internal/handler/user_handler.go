package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

// UserHandler wires profile, note and favourite HTTP routes.
type UserHandler struct {
	profiles service.ProfileService
	notes    service.NoteService
	logger   zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(profiles service.ProfileService, notes service.NoteService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		profiles: profiles,
		notes:    notes,
		logger:   logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches user endpoints to the router group.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/profile", h.getProfile)
	router.Patch("/profile", h.updateProfile)
	router.Delete("/profile", h.deleteProfile)

	router.Get("/notes", h.listNotes)
	router.Post("/notes", h.createNote)
	router.Patch("/notes/:id", h.updateNote)
	router.Delete("/notes/:id", h.deleteNote)

	router.Get("/favorites", h.listFavorites)
	router.Post("/favorites/modules/:moduleId", h.favoriteModule)
	router.Delete("/favorites/modules/:moduleId", h.unfavoriteModule)
	router.Post("/favorites/chapters/:chapterId", h.favoriteChapter)
	router.Delete("/favorites/chapters/:chapterId", h.unfavoriteChapter)
}

func (h *UserHandler) getProfile(c *fiber.Ctx) error {
	profile, err := h.profiles.Get(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *UserHandler) updateProfile(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := h.profiles.Update(c.Context(), userIDFromContext(c), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "profile updated", profile)
}

func (h *UserHandler) deleteProfile(c *fiber.Ctx) error {
	if err := h.profiles.Delete(c.Context(), userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "account deactivated", nil)
}

func (h *UserHandler) listNotes(c *fiber.Ctx) error {
	var moduleID *uint
	if value := parseQueryInt(c, "module_id"); value > 0 {
		id := uint(value)
		moduleID = &id
	}

	notes, err := h.notes.List(c.Context(), userIDFromContext(c), moduleID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "notes retrieved", notes)
}

func (h *UserHandler) createNote(c *fiber.Ctx) error {
	var req dto.CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	note, err := h.notes.Create(c.Context(), userIDFromContext(c), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "note created", note)
}

func (h *UserHandler) updateNote(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.UpdateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	note, err := h.notes.Update(c.Context(), userIDFromContext(c), id, req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "note updated", note)
}

func (h *UserHandler) deleteNote(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.notes.Delete(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "note deleted", nil)
}

func (h *UserHandler) listFavorites(c *fiber.Ctx) error {
	favorites, err := h.notes.ListFavorites(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "favorites retrieved", favorites)
}

func (h *UserHandler) favoriteModule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "moduleId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.notes.FavoriteModule(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module favorited", nil)
}

func (h *UserHandler) unfavoriteModule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "moduleId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.notes.UnfavoriteModule(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module unfavorited", nil)
}

func (h *UserHandler) favoriteChapter(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "chapterId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.notes.FavoriteChapter(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chapter favorited", nil)
}

func (h *UserHandler) unfavoriteChapter(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "chapterId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.notes.UnfavoriteChapter(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chapter unfavorited", nil)
}

func (h *UserHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNoteNotFound),
		errors.Is(err, service.ErrModuleNotFound),
		errors.Is(err, service.ErrChapterNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoteNotOwned):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("user request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
