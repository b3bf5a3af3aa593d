package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Permission{}, &models.Role{}))
	return db
}

func TestInitializeSeedsCatalogue(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Initialize(db))

	var permissions int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permissions).Error)
	require.EqualValues(t, len(Permissions), permissions)

	var roles int64
	require.NoError(t, db.Model(&models.Role{}).Count(&roles).Error)
	require.EqualValues(t, len(DefaultRoles), roles)

	var student models.Role
	require.NoError(t, db.Preload("Permissions").First(&student, "name = ?", RoleStudent).Error)
	require.True(t, student.IsDefault)

	names := make(map[string]bool, len(student.Permissions))
	for _, permission := range student.Permissions {
		names[permission.Name] = true
	}
	require.True(t, names["course:read"])
	require.True(t, names["progress:write"])
	require.False(t, names["teacher:codes:manage"])
	require.False(t, names[PermissionAll])
}

func TestInitializeIsIdempotent(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Initialize(db))
	require.NoError(t, Initialize(db))

	var permissions int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permissions).Error)
	require.EqualValues(t, len(Permissions), permissions)

	var roles int64
	require.NoError(t, db.Model(&models.Role{}).Count(&roles).Error)
	require.EqualValues(t, len(DefaultRoles), roles)
}

func TestAdminHoldsEveryPermission(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Initialize(db))

	var admin models.Role
	require.NoError(t, db.Preload("Permissions").First(&admin, "name = ?", RoleAdmin).Error)
	require.Len(t, admin.Permissions, len(Permissions))
}
