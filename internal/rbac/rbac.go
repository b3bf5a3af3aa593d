// Package rbac defines the static permission catalogue matched with the
// default roles, and seeds both into the store on startup.
package rbac

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

// Role names with built-in assignments.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// PermissionAll is the catch-all granted to administrators. Holding it
// implies every other permission without a stored row per permission.
const PermissionAll = "admin:all"

// Permissions is the full capability catalogue with human descriptions.
var Permissions = map[string]string{
	"user:read":             "Read user information",
	"user:write":            "Modify user information",
	"user:delete":           "Delete user account",
	"course:read":           "Read course information",
	"course:write":          "Create or modify courses",
	"course:delete":         "Delete courses",
	"progress:read":         "Read progress information",
	"progress:write":        "Update progress information",
	"chat:read":             "Read chat messages",
	"chat:write":            "Send chat messages",
	"chat:delete":           "Delete chat messages",
	"note:read":             "Read notes",
	"note:write":            "Create or modify notes",
	"note:delete":           "Delete notes",
	"upload:write":          "Upload files",
	"admin:users:manage":    "Manage users and roles",
	"admin:courses:manage":  "Manage all courses",
	"admin:system:manage":   "Manage system settings",
	"teacher:codes:manage":  "Manage teacher codes",
	"teacher:students:view": "View assigned students",
	PermissionAll:           "All permissions",
}

type roleDefinition struct {
	Description string
	IsDefault   bool
	Permissions []string
}

// DefaultRoles enumerates the roles created at startup. The student role is
// the default assigned to newly provisioned users.
var DefaultRoles = map[string]roleDefinition{
	RoleStudent: {
		Description: "Default student role",
		IsDefault:   true,
		Permissions: []string{
			"user:read", "user:write",
			"course:read",
			"progress:read", "progress:write",
			"chat:read", "chat:write",
			"note:read", "note:write", "note:delete",
			"upload:write",
		},
	},
	RoleTeacher: {
		Description: "Teacher role",
		Permissions: []string{
			"user:read",
			"course:read", "course:write",
			"progress:read",
			"chat:read", "chat:write",
			"note:read",
			"upload:write",
			"teacher:codes:manage",
			"teacher:students:view",
		},
	},
	RoleAdmin: {
		Description: "Administrator role",
		Permissions: allPermissionNames(),
	},
}

func allPermissionNames() []string {
	names := make([]string, 0, len(Permissions))
	for name := range Permissions {
		names = append(names, name)
	}
	return names
}

// Initialize upserts the permission catalogue, the default roles, and the
// role→permission assignments. Safe to run on every process startup; existing
// rows are matched by unique name and never duplicated.
func Initialize(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		permsByName := make(map[string]models.Permission, len(Permissions))
		for name, description := range Permissions {
			var permission models.Permission
			err := tx.Where(models.Permission{Name: name}).
				Attrs(models.Permission{Description: description}).
				FirstOrCreate(&permission).Error
			if err != nil {
				return fmt.Errorf("seed permission %q: %w", name, err)
			}
			permsByName[name] = permission
		}

		for name, definition := range DefaultRoles {
			var role models.Role
			err := tx.Where(models.Role{Name: name}).
				Attrs(models.Role{Description: definition.Description, IsDefault: definition.IsDefault}).
				FirstOrCreate(&role).Error
			if err != nil {
				return fmt.Errorf("seed role %q: %w", name, err)
			}

			assigned := make([]models.Permission, 0, len(definition.Permissions))
			for _, permName := range definition.Permissions {
				permission, ok := permsByName[permName]
				if !ok {
					return fmt.Errorf("role %q references unknown permission %q", name, permName)
				}
				assigned = append(assigned, permission)
			}

			if err := tx.Model(&role).Association("Permissions").Replace(assigned); err != nil {
				return fmt.Errorf("assign permissions to role %q: %w", name, err)
			}
		}

		return nil
	})
}
