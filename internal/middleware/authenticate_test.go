package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/regod-app/regod-api/internal/auth"
	"github.com/regod-app/regod-api/internal/database"
	"github.com/regod-app/regod-api/internal/identity"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
	"github.com/regod-app/regod-api/internal/utils"
)

const authTestSecret = "authenticate-middleware-secret"

type authTestEnv struct {
	app *fiber.App
	db  *gorm.DB
}

func setupAuthApp(t *testing.T, jwksURL string) authTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	require.NoError(t, rbac.Initialize(db))
	logger := zerolog.Nop()

	keys := auth.NewKeyCache(jwksURL, time.Minute, logger)
	verifier := auth.NewVerifier(authTestSecret, keys, nil, logger)
	resolver := identity.NewResolver(repository.NewUserRepository(db), repository.NewRoleRepository(db), logger)

	app := fiber.New()
	app.Get("/me", Authenticate(verifier, resolver, logger), func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "ok", fiber.Map{
			"user_id": c.Locals("user_id"),
			"role":    c.Locals("user_role"),
		})
	})

	return authTestEnv{app: app, db: db}
}

func createActiveUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()

	email := "tester@example.com"
	user := models.User{
		Email:      &email,
		Name:       "Tester",
		IsActive:   true,
		IsVerified: true,
	}
	require.NoError(t, db.Create(&user).Error)

	var student models.Role
	require.NoError(t, db.Where("name = ?", rbac.RoleStudent).First(&student).Error)
	require.NoError(t, db.Model(&user).Association("Roles").Append(&student))

	return user
}

func TestAuthenticateAcceptsLocalToken(t *testing.T) {
	env := setupAuthApp(t, "http://127.0.0.1:1/jwks")
	user := createActiveUser(t, env.db)

	token, err := auth.NewAccessToken(authTestSecret, time.Minute, user.ID, rbac.RoleStudent, auth.DefaultScopesForRole(rbac.RoleStudent))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, user.ID, data["user_id"])
	require.Equal(t, rbac.RoleStudent, data["role"])
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	env := setupAuthApp(t, "http://127.0.0.1:1/jwks")

	resp, err := env.app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, auth.CodeUnauthenticated, body.Code)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	env := setupAuthApp(t, "http://127.0.0.1:1/jwks")
	user := createActiveUser(t, env.db)

	token, err := auth.NewAccessToken(authTestSecret, -time.Minute, user.ID, rbac.RoleStudent, nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, auth.CodeTokenExpired, body.Code)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	env := setupAuthApp(t, "http://127.0.0.1:1/jwks")
	user := createActiveUser(t, env.db)
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	token, err := auth.NewAccessToken(authTestSecret, time.Minute, user.ID, rbac.RoleStudent, nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "USER_INACTIVE", body.Code)
}

func TestAuthenticateSurfacesKeySetOutage(t *testing.T) {
	env := setupAuthApp(t, "http://127.0.0.1:1/jwks")

	// An externally signed token forces the key-set lookup, and the
	// unreachable endpoint decides the outcome.
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	external := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "ext_user_1",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	external.Header["kid"] = "key-1"
	token, err := external.SignedString(key)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, auth.CodeJWKSFetchFailed, body.Code)
}
