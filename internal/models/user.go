package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GenericUserName is the placeholder assigned to accounts provisioned without
// a usable display name. Reconciliation may replace it with a real name later
// but never the other way around.
const GenericUserName = "User"

// User is the identity record every authorization decision resolves to.
// Accounts are never hard-deleted; Deactivate soft-flags them and mangles the
// email so the unique constraint frees the address for reuse.
type User struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	Email          *string    `gorm:"size:255;uniqueIndex" json:"email"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	ExternalID     *string    `gorm:"size:128;uniqueIndex" json:"external_id"`
	HashedPassword *string    `gorm:"size:255" json:"-"`
	AvatarURL      string     `gorm:"size:512" json:"avatar_url"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	IsVerified     bool       `gorm:"not null;default:false" json:"is_verified"`
	VerifyCode     string     `gorm:"size:16" json:"-"`
	LastLogin      *time.Time `json:"last_login"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Roles          []Role     `gorm:"many2many:user_roles" json:"roles,omitempty"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// EmailValue returns the email or an empty string for unsynced accounts.
func (u User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// HasGenericName reports whether the display name is still the provisioning placeholder.
func (u User) HasGenericName() bool {
	return u.Name == "" || u.Name == GenericUserName
}

// RoleNames returns the names of all roles held by the user.
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(name string) bool {
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// PermissionNames returns the de-duplicated permission names granted through roles.
func (u User) PermissionNames() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, role := range u.Roles {
		for _, permission := range role.Permissions {
			if _, ok := seen[permission.Name]; ok {
				continue
			}
			seen[permission.Name] = struct{}{}
			names = append(names, permission.Name)
		}
	}
	return names
}

// Role bundles permissions under a name. IsDefault marks the role assigned to
// newly self-registered users.
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsDefault   bool         `gorm:"not null;default:false" json:"is_default"`
	CreatedAt   time.Time    `json:"created_at"`
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
}

// Permission names a single capability, e.g. "course:write".
type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserRole is the user↔role join row carrying assignment provenance.
type UserRole struct {
	UserID     string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	RoleID     uint      `gorm:"primaryKey" json:"role_id"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assigned_at"`
	AssignedBy *string   `gorm:"type:uuid" json:"assigned_by"`
}

// RefreshToken stores a rotating refresh credential as a SHA-256 digest.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// IsUsable reports whether the refresh token can still be exchanged.
func (t RefreshToken) IsUsable(reference time.Time) bool {
	return !t.Revoked && reference.Before(t.ExpiresAt)
}
