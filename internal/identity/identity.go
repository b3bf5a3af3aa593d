// Package identity maps verified token claims onto local user records and
// exposes the resolved identity consumed by the authorization gate.
package identity

import (
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/rbac"
)

// Identity is the per-request view of an authenticated user.
type Identity struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Verified    bool     `json:"verified"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	PrimaryRole string   `json:"primary_role"`
}

// HasRole reports whether the identity holds the named role.
func (i Identity) HasRole(name string) bool {
	for _, role := range i.Roles {
		if role == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity holds at least one of the names.
func (i Identity) HasAnyRole(names ...string) bool {
	for _, name := range names {
		if i.HasRole(name) {
			return true
		}
	}
	return false
}

// HasPermission reports whether the identity holds the named permission,
// either directly or through the admin catch-all.
func (i Identity) HasPermission(name string) bool {
	for _, permission := range i.Permissions {
		if permission == name || permission == rbac.PermissionAll {
			return true
		}
	}
	return false
}

// FromUser builds the resolved identity from a user with preloaded roles.
func FromUser(user models.User) Identity {
	roles := user.RoleNames()
	primary := rbac.RoleStudent
	if len(roles) > 0 {
		primary = roles[0]
	}

	return Identity{
		ID:          user.ID,
		Email:       user.EmailValue(),
		Name:        user.Name,
		Verified:    user.IsVerified,
		Roles:       roles,
		Permissions: user.PermissionNames(),
		PrimaryRole: primary,
	}
}
