package identity

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/auth"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
)

func setupResolver(t *testing.T) (*Resolver, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}))
	require.NoError(t, db.AutoMigrate(&models.Permission{}, &models.Role{}, &models.User{}))
	require.NoError(t, rbac.Initialize(db))

	logger := zerolog.New(io.Discard)
	resolver := NewResolver(repository.NewUserRepository(db), repository.NewRoleRepository(db), logger)
	return resolver, db
}

func TestResolveProvisionsUnknownSubject(t *testing.T) {
	resolver, db := setupResolver(t)

	claims := auth.Claims{SubjectID: "ext-123", Email: "new@example.com", Name: "New User", Verified: true}
	ident, err := resolver.Resolve(context.Background(), claims)
	require.NoError(t, err)
	require.NotEmpty(t, ident.ID)
	require.Equal(t, "new@example.com", ident.Email)
	require.Equal(t, "New User", ident.Name)
	require.True(t, ident.Verified)
	require.Contains(t, ident.Roles, rbac.RoleStudent)
	require.Equal(t, rbac.RoleStudent, ident.PrimaryRole)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestResolveIsIdempotent(t *testing.T) {
	resolver, db := setupResolver(t)

	claims := auth.Claims{SubjectID: "ext-123", Email: "same@example.com", Name: "Same"}
	first, err := resolver.Resolve(context.Background(), claims)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), claims)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.EqualValues(t, 1, users)

	var assignments int64
	require.NoError(t, db.Model(&models.UserRole{}).Count(&assignments).Error)
	require.EqualValues(t, 1, assignments)
}

func TestResolveProvisionWithoutName(t *testing.T) {
	resolver, _ := setupResolver(t)

	ident, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9"})
	require.NoError(t, err)
	require.Equal(t, models.GenericUserName, ident.Name)
	require.Empty(t, ident.Email)
}

func TestReconcileFillsGenericName(t *testing.T) {
	resolver, db := setupResolver(t)

	_, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9"})
	require.NoError(t, err)

	ident, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9", Name: "Real Name"})
	require.NoError(t, err)
	require.Equal(t, "Real Name", ident.Name)

	var user models.User
	require.NoError(t, db.First(&user, "external_id = ?", "ext-9").Error)
	require.Equal(t, "Real Name", user.Name)
}

func TestReconcileNeverOverwritesRealName(t *testing.T) {
	resolver, _ := setupResolver(t)

	_, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9", Name: "Original"})
	require.NoError(t, err)

	ident, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9", Name: "Impostor"})
	require.NoError(t, err)
	require.Equal(t, "Original", ident.Name)
}

func TestReconcileVerifiedIsMonotonic(t *testing.T) {
	resolver, _ := setupResolver(t)

	_, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9", Verified: true})
	require.NoError(t, err)

	// A later token without the verified claim must not demote the account.
	ident, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9"})
	require.NoError(t, err)
	require.True(t, ident.Verified)
}

func TestReconcileUpdatesEmail(t *testing.T) {
	resolver, _ := setupResolver(t)

	_, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9", Email: "old@example.com"})
	require.NoError(t, err)

	ident, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9", Email: "new@example.com"})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", ident.Email)
}

func TestResolveInactiveUserFailsClosed(t *testing.T) {
	resolver, db := setupResolver(t)

	ident, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", ident.ID).Update("is_active", false).Error)

	_, err = resolver.Resolve(context.Background(), auth.Claims{SubjectID: "ext-9"})
	require.ErrorIs(t, err, ErrUserInactive)
}

func TestResolveByLocalUserID(t *testing.T) {
	resolver, db := setupResolver(t)

	email := "local@example.com"
	user := models.User{Email: &email, Name: "Local", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	ident, err := resolver.Resolve(context.Background(), auth.Claims{SubjectID: user.ID})
	require.NoError(t, err)
	require.Equal(t, user.ID, ident.ID)
}

func TestIdentityPermissionChecks(t *testing.T) {
	ident := Identity{
		Roles:       []string{rbac.RoleTeacher},
		Permissions: []string{"teacher:codes:manage", "course:read"},
	}
	require.True(t, ident.HasRole(rbac.RoleTeacher))
	require.False(t, ident.HasRole(rbac.RoleAdmin))
	require.True(t, ident.HasAnyRole(rbac.RoleAdmin, rbac.RoleTeacher))
	require.True(t, ident.HasPermission("course:read"))
	require.False(t, ident.HasPermission("admin:users:manage"))

	admin := Identity{Permissions: []string{rbac.PermissionAll}}
	require.True(t, admin.HasPermission("admin:users:manage"))
}
