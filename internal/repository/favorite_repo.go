package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// FavoriteRepository persists module and chapter favourites.
type FavoriteRepository interface {
	AddModuleFavorite(ctx context.Context, userID string, moduleID uint) error
	RemoveModuleFavorite(ctx context.Context, userID string, moduleID uint) error
	ListModuleFavorites(ctx context.Context, userID string) ([]models.ModuleFavorite, error)
	HasModuleFavorite(ctx context.Context, userID string, moduleID uint) (bool, error)

	AddChapterFavorite(ctx context.Context, userID string, chapterID uint) error
	RemoveChapterFavorite(ctx context.Context, userID string, chapterID uint) error
	ListChapterFavorites(ctx context.Context, userID string) ([]models.ChapterFavorite, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository constructs the favourite repository.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) AddModuleFavorite(ctx context.Context, userID string, moduleID uint) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ModuleFavorite{}).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(&models.ModuleFavorite{UserID: userID, ModuleID: moduleID}).Error
}

func (r *favoriteRepository) RemoveModuleFavorite(ctx context.Context, userID string, moduleID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Delete(&models.ModuleFavorite{}).Error
}

func (r *favoriteRepository) ListModuleFavorites(ctx context.Context, userID string) ([]models.ModuleFavorite, error) {
	var favorites []models.ModuleFavorite
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error

	return favorites, err
}

func (r *favoriteRepository) HasModuleFavorite(ctx context.Context, userID string, moduleID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ModuleFavorite{}).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Count(&count).Error

	return count > 0, err
}

func (r *favoriteRepository) AddChapterFavorite(ctx context.Context, userID string, chapterID uint) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChapterFavorite{}).
		Where("user_id = ? AND chapter_id = ?", userID, chapterID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(&models.ChapterFavorite{UserID: userID, ChapterID: chapterID}).Error
}

func (r *favoriteRepository) RemoveChapterFavorite(ctx context.Context, userID string, chapterID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND chapter_id = ?", userID, chapterID).
		Delete(&models.ChapterFavorite{}).Error
}

func (r *favoriteRepository) ListChapterFavorites(ctx context.Context, userID string) ([]models.ChapterFavorite, error) {
	var favorites []models.ChapterFavorite
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error

	return favorites, err
}
