package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/auth"
	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/identity"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
)

const testSecret = "auth-test-secret"

func newAuthService(t *testing.T, cache *redis.Client) (AuthService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	roles := repository.NewRoleRepository(db)
	tokens := repository.NewRefreshTokenRepository(db)
	verifier := auth.NewVerifier(testSecret, nil, nil, testLogger())
	resolver := identity.NewResolver(users, roles, testLogger())

	svc := NewAuthService(users, roles, tokens, verifier, resolver, cache,
		testSecret, 15*time.Minute, 24*time.Hour, testValidator(), testLogger())
	return svc, db
}

func registerVerified(t *testing.T, svc AuthService, db *gorm.DB, email, password string) dto.TokenPairResponse {
	t.Helper()

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     "Test User",
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", email).Error)

	pair, err := svc.VerifyEmail(context.Background(), dto.VerifyEmailRequest{Email: email, Code: user.VerifyCode})
	require.NoError(t, err)
	return pair
}

func TestRegisterAssignsDefaultRole(t *testing.T) {
	svc, db := newAuthService(t, nil)

	profile, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "new@example.com",
		Password: "password123",
		Name:     "Newcomer",
	})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleStudent, profile.Role)
	require.False(t, profile.IsVerified)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "new@example.com").Error)
	require.Len(t, user.VerifyCode, 6)
	require.NotNil(t, user.HashedPassword)
	require.NotEqual(t, "password123", *user.HashedPassword)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	req := dto.RegisterRequest{Email: "dup@example.com", Password: "password123", Name: "One"}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestCheckUser(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	result, err := svc.CheckUser(context.Background(), dto.CheckUserRequest{Email: "ghost@example.com"})
	require.NoError(t, err)
	require.False(t, result.Exists)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{Email: "ghost@example.com", Password: "password123"})
	require.NoError(t, err)

	result, err = svc.CheckUser(context.Background(), dto.CheckUserRequest{Email: "ghost@example.com"})
	require.NoError(t, err)
	require.True(t, result.Exists)
	require.False(t, result.IsVerified)
}

func TestLoginBeforeVerification(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{Email: "wait@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "wait@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrAccountNotVerified)
}

func TestVerifyEmailWithWrongCode(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{Email: "code@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.VerifyEmail(context.Background(), dto.VerifyEmailRequest{Email: "code@example.com", Code: "000000"})
	require.ErrorIs(t, err, ErrInvalidVerifyCode)
}

func TestLoginAfterVerification(t *testing.T) {
	svc, db := newAuthService(t, nil)
	registerVerified(t, svc, db, "login@example.com", "password123")

	pair, err := svc.Login(context.Background(), dto.LoginRequest{Email: "login@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.EqualValues(t, (15 * time.Minute).Seconds(), pair.ExpiresIn)

	claims, err := auth.ParseLocalToken(testSecret, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, pair.User.ID, claims.Subject)
	require.Equal(t, rbac.RoleStudent, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, db := newAuthService(t, nil)
	registerVerified(t, svc, db, "wrong@example.com", "password123")

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "wrong@example.com", Password: "password456"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, db := newAuthService(t, nil)
	pair := registerVerified(t, svc, db, "gone@example.com", "password123")

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", pair.User.ID).Update("is_active", false).Error)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "gone@example.com", Password: "password123"})
	require.ErrorIs(t, err, identity.ErrUserInactive)
}

func TestLoginRateLimit(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	svc, _ := newAuthService(t, cache)

	for i := 0; i < 10; i++ {
		_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "burst@example.com", Password: "password123"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "burst@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, db := newAuthService(t, nil)
	pair := registerVerified(t, svc, db, "rotate@example.com", "password123")

	rotated, err := svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The consumed token is revoked and cannot be replayed.
	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.ErrorIs(t, err, ErrRefreshRejected)

	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: rotated.RefreshToken})
	require.NoError(t, err)
}

func TestRefreshUnknownToken(t *testing.T) {
	svc, _ := newAuthService(t, nil)

	_, err := svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: auth.NewRefreshToken()})
	require.ErrorIs(t, err, ErrRefreshRejected)
}

func TestLogoutRevokesAllRefreshTokens(t *testing.T) {
	svc, db := newAuthService(t, nil)
	pair := registerVerified(t, svc, db, "bye@example.com", "password123")

	second, err := svc.Login(context.Background(), dto.LoginRequest{Email: "bye@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), pair.User.ID))

	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.ErrorIs(t, err, ErrRefreshRejected)
	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: second.RefreshToken})
	require.ErrorIs(t, err, ErrRefreshRejected)
}

func TestExchangeMintsLocalTokens(t *testing.T) {
	svc, db := newAuthService(t, nil)
	pair := registerVerified(t, svc, db, "swap@example.com", "password123")

	exchanged, err := svc.Exchange(context.Background(), dto.ExchangeRequest{Token: pair.AccessToken})
	require.NoError(t, err)
	require.Equal(t, pair.User.ID, exchanged.User.ID)
	require.NotEmpty(t, exchanged.RefreshToken)
}
