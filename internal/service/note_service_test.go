package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/repository"
)

func newNoteService(t *testing.T) (NoteService, CourseService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	courses := repository.NewCourseRepository(db)
	notes := NewNoteService(
		repository.NewNoteRepository(db),
		repository.NewFavoriteRepository(db),
		courses,
		testValidator(),
		testLogger(),
	)
	courseSvc := NewCourseService(courses, testValidator(), testLogger())
	return notes, courseSvc, db
}

func TestNoteLifecycle(t *testing.T) {
	notes, _, db := newNoteService(t)
	user := createUser(t, db, "Writer", "writer@example.com")

	created, err := notes.Create(context.Background(), user.ID, dto.CreateNoteRequest{
		Title:   "Reflections",
		Content: "A quiet morning.",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	listed, err := notes.List(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	newContent := "A loud evening."
	updated, err := notes.Update(context.Background(), user.ID, created.ID, dto.UpdateNoteRequest{Content: &newContent})
	require.NoError(t, err)
	require.Equal(t, "A loud evening.", updated.Content)

	require.NoError(t, notes.Delete(context.Background(), user.ID, created.ID))

	listed, err = notes.List(context.Background(), user.ID, nil)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestNoteContentIsSanitized(t *testing.T) {
	notes, _, db := newNoteService(t)
	user := createUser(t, db, "Writer", "writer@example.com")

	created, err := notes.Create(context.Background(), user.ID, dto.CreateNoteRequest{
		Content: `Hello <script>alert("x")</script><b>world</b>`,
	})
	require.NoError(t, err)
	require.NotContains(t, created.Content, "<script>")
	require.Contains(t, created.Content, "<b>world</b>")
}

func TestNoteOwnershipEnforced(t *testing.T) {
	notes, _, db := newNoteService(t)
	owner := createUser(t, db, "Owner", "owner@example.com")
	other := createUser(t, db, "Other", "other@example.com")

	created, err := notes.Create(context.Background(), owner.ID, dto.CreateNoteRequest{Content: "mine"})
	require.NoError(t, err)

	_, err = notes.Update(context.Background(), other.ID, created.ID, dto.UpdateNoteRequest{})
	require.ErrorIs(t, err, ErrNoteNotOwned)
	require.ErrorIs(t, notes.Delete(context.Background(), other.ID, created.ID), ErrNoteNotOwned)
	require.ErrorIs(t, notes.Delete(context.Background(), owner.ID, 999), ErrNoteNotFound)
}

func TestNoteRejectsUnknownModule(t *testing.T) {
	notes, _, db := newNoteService(t)
	user := createUser(t, db, "Writer", "writer@example.com")

	moduleID := uint(404)
	_, err := notes.Create(context.Background(), user.ID, dto.CreateNoteRequest{
		ModuleID: &moduleID,
		Content:  "orphan",
	})
	require.ErrorIs(t, err, ErrModuleNotFound)
}

func TestFavoritesAreIdempotent(t *testing.T) {
	notes, courseSvc, db := newNoteService(t)
	creator := createUser(t, db, "Admin", "admin@example.com")
	user := createUser(t, db, "Student", "student@example.com")
	course, modules := seedCourseWithModules(t, courseSvc, creator.ID, 1)

	chapter, err := courseSvc.CreateChapter(context.Background(), course.ID, dto.CreateChapterRequest{Title: "One", Sequence: 1})
	require.NoError(t, err)

	require.NoError(t, notes.FavoriteModule(context.Background(), user.ID, modules[0].ID))
	require.NoError(t, notes.FavoriteModule(context.Background(), user.ID, modules[0].ID))
	require.NoError(t, notes.FavoriteChapter(context.Background(), user.ID, chapter.ID))

	favorites, err := notes.ListFavorites(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{modules[0].ID}, favorites.ModuleIDs)
	require.Equal(t, []uint{chapter.ID}, favorites.ChapterIDs)

	require.NoError(t, notes.UnfavoriteModule(context.Background(), user.ID, modules[0].ID))
	favorites, err = notes.ListFavorites(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, favorites.ModuleIDs)
}

func TestFavoriteUnknownModule(t *testing.T) {
	notes, _, db := newNoteService(t)
	user := createUser(t, db, "Student", "student@example.com")

	require.ErrorIs(t, notes.FavoriteModule(context.Background(), user.ID, 404), ErrModuleNotFound)
	require.ErrorIs(t, notes.FavoriteChapter(context.Background(), user.ID, 404), ErrChapterNotFound)
}
