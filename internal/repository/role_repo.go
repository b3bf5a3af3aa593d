package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// RoleRepository provides access to roles and the permission catalogue.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (models.Role, error)
	GetDefault(ctx context.Context) (models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository constructs a role repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).Preload("Permissions").First(&role, "name = ?", name).Error
	if err != nil {
		return models.Role{}, err
	}
	return role, nil
}

func (r *roleRepository) GetDefault(ctx context.Context) (models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).Preload("Permissions").First(&role, "is_default = ?", true).Error
	if err != nil {
		return models.Role{}, err
	}
	return role, nil
}

func (r *roleRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var permissions []models.Permission
	if err := r.db.WithContext(ctx).Order("name").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}
