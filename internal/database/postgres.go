package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate registers join tables and runs schema migrations for all models.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}); err != nil {
		return fmt.Errorf("failed to set up user role join table: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.User{},
		&models.RefreshToken{},
		&models.TeacherCode{},
		&models.TeacherCodeUse{},
		&models.TeacherLink{},
		&models.Course{},
		&models.Chapter{},
		&models.Module{},
		&models.CourseProgress{},
		&models.ModuleProgress{},
		&models.QuizResponse{},
		&models.Note{},
		&models.ModuleFavorite{},
		&models.ChapterFavorite{},
		&models.ChatThread{},
		&models.ChatMessage{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
