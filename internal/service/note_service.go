package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/repository"
)

// Note failures callers can map to client errors.
var (
	ErrNoteNotFound = errors.New("note not found")
	ErrNoteNotOwned = errors.New("note belongs to another user")
)

// NoteService manages private study notes and favourites.
type NoteService interface {
	Create(ctx context.Context, userID string, req dto.CreateNoteRequest) (dto.NoteResponse, error)
	List(ctx context.Context, userID string, moduleID *uint) ([]dto.NoteResponse, error)
	Update(ctx context.Context, userID string, noteID uint, req dto.UpdateNoteRequest) (dto.NoteResponse, error)
	Delete(ctx context.Context, userID string, noteID uint) error

	FavoriteModule(ctx context.Context, userID string, moduleID uint) error
	UnfavoriteModule(ctx context.Context, userID string, moduleID uint) error
	FavoriteChapter(ctx context.Context, userID string, chapterID uint) error
	UnfavoriteChapter(ctx context.Context, userID string, chapterID uint) error
	ListFavorites(ctx context.Context, userID string) (dto.FavoriteResponse, error)
}

type noteService struct {
	notes     repository.NoteRepository
	favorites repository.FavoriteRepository
	courses   repository.CourseRepository
	sanitizer *bluemonday.Policy
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewNoteService builds the note service. Note bodies pass through an HTML
// sanitizer so stored content is safe to render verbatim.
func NewNoteService(
	notes repository.NoteRepository,
	favorites repository.FavoriteRepository,
	courses repository.CourseRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) NoteService {
	return &noteService{
		notes:     notes,
		favorites: favorites,
		courses:   courses,
		sanitizer: bluemonday.UGCPolicy(),
		validate:  validate,
		logger:    logger.With().Str("component", "note_service").Logger(),
	}
}

func (s *noteService) Create(ctx context.Context, userID string, req dto.CreateNoteRequest) (dto.NoteResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.NoteResponse{}, err
	}

	if req.ModuleID != nil {
		if _, err := s.courses.GetModule(ctx, *req.ModuleID); errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NoteResponse{}, ErrModuleNotFound
		} else if err != nil {
			return dto.NoteResponse{}, err
		}
	}

	note := models.Note{
		UserID:   userID,
		CourseID: req.CourseID,
		ModuleID: req.ModuleID,
		Title:    strings.TrimSpace(req.Title),
		Content:  s.sanitizer.Sanitize(req.Content),
	}
	if err := s.notes.Create(ctx, &note); err != nil {
		return dto.NoteResponse{}, err
	}

	return noteResponse(note), nil
}

func (s *noteService) List(ctx context.Context, userID string, moduleID *uint) ([]dto.NoteResponse, error) {
	notes, err := s.notes.ListByUser(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.NoteResponse, 0, len(notes))
	for _, note := range notes {
		responses = append(responses, noteResponse(note))
	}

	return responses, nil
}

func (s *noteService) Update(ctx context.Context, userID string, noteID uint, req dto.UpdateNoteRequest) (dto.NoteResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.NoteResponse{}, err
	}

	note, err := s.ownedNote(ctx, userID, noteID)
	if err != nil {
		return dto.NoteResponse{}, err
	}

	if req.Title != nil {
		note.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		note.Content = s.sanitizer.Sanitize(*req.Content)
	}

	if err := s.notes.Update(ctx, &note); err != nil {
		return dto.NoteResponse{}, err
	}

	return noteResponse(note), nil
}

func (s *noteService) Delete(ctx context.Context, userID string, noteID uint) error {
	if _, err := s.ownedNote(ctx, userID, noteID); err != nil {
		return err
	}

	return s.notes.Delete(ctx, noteID)
}

func (s *noteService) FavoriteModule(ctx context.Context, userID string, moduleID uint) error {
	if _, err := s.courses.GetModule(ctx, moduleID); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrModuleNotFound
	} else if err != nil {
		return err
	}

	return s.favorites.AddModuleFavorite(ctx, userID, moduleID)
}

func (s *noteService) UnfavoriteModule(ctx context.Context, userID string, moduleID uint) error {
	return s.favorites.RemoveModuleFavorite(ctx, userID, moduleID)
}

func (s *noteService) FavoriteChapter(ctx context.Context, userID string, chapterID uint) error {
	if _, err := s.courses.GetChapter(ctx, chapterID); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrChapterNotFound
	} else if err != nil {
		return err
	}

	return s.favorites.AddChapterFavorite(ctx, userID, chapterID)
}

func (s *noteService) UnfavoriteChapter(ctx context.Context, userID string, chapterID uint) error {
	return s.favorites.RemoveChapterFavorite(ctx, userID, chapterID)
}

func (s *noteService) ListFavorites(ctx context.Context, userID string) (dto.FavoriteResponse, error) {
	modules, err := s.favorites.ListModuleFavorites(ctx, userID)
	if err != nil {
		return dto.FavoriteResponse{}, err
	}

	chapters, err := s.favorites.ListChapterFavorites(ctx, userID)
	if err != nil {
		return dto.FavoriteResponse{}, err
	}

	response := dto.FavoriteResponse{
		ModuleIDs:  make([]uint, 0, len(modules)),
		ChapterIDs: make([]uint, 0, len(chapters)),
	}
	for _, favorite := range modules {
		response.ModuleIDs = append(response.ModuleIDs, favorite.ModuleID)
	}
	for _, favorite := range chapters {
		response.ChapterIDs = append(response.ChapterIDs, favorite.ChapterID)
	}

	return response, nil
}

func (s *noteService) ownedNote(ctx context.Context, userID string, noteID uint) (models.Note, error) {
	note, err := s.notes.GetByID(ctx, noteID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Note{}, ErrNoteNotFound
	}
	if err != nil {
		return models.Note{}, err
	}

	if note.UserID != userID {
		return models.Note{}, ErrNoteNotOwned
	}

	return note, nil
}

func noteResponse(note models.Note) dto.NoteResponse {
	return dto.NoteResponse{
		ID:        note.ID,
		CourseID:  note.CourseID,
		ModuleID:  note.ModuleID,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}
