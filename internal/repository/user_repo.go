package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Page     int
	PageSize int
	Role     string
	Search   string
	Active   *bool
}

// UserRepository provides access to user records. Lookups preload role and
// permission associations so callers can build resolved identities without
// further queries.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	AssignRole(ctx context.Context, userID string, roleID uint, assignedBy *string) error
	RemoveRole(ctx context.Context, userID string, roleID uint) error
	Deactivate(ctx context.Context, userID string) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		First(&user, "id = ?", id).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		First(&user, "external_id = ?", externalID).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		First(&user, "email = ?", email).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Roles").Save(user).Error
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}

	if filter.Role != "" {
		query = query.
			Joins("JOIN user_roles ON user_roles.user_id = users.id").
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("roles.name = ?", filter.Role)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Distinct("users.id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var users []models.User
	err := query.
		Preload("Roles").
		Order("users.created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// AssignRole inserts a user→role edge unless one already exists, keeping
// repeated resolutions idempotent.
func (r *userRepository) AssignRole(ctx context.Context, userID string, roleID uint, assignedBy *string) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(&models.UserRole{
		UserID:     userID,
		RoleID:     roleID,
		AssignedBy: assignedBy,
	}).Error
}

func (r *userRepository) RemoveRole(ctx context.Context, userID string, roleID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.UserRole{}).Error
}

// Deactivate soft-deletes the account and mangles the email so the unique
// constraint frees the address for reuse.
func (r *userRepository) Deactivate(ctx context.Context, userID string) error {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{"is_active": false}
	if user.Email != nil {
		updates["email"] = fmt.Sprintf("deleted+%s+%s", userID, *user.Email)
	}

	return r.db.WithContext(ctx).Model(&user).Updates(updates).Error
}

func (r *userRepository) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_login", at).Error
}
