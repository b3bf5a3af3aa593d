package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/auth"
	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/identity"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
)

// Authentication failures callers can map to client errors.
var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrAccountNotVerified = errors.New("account email is not verified")
	ErrInvalidVerifyCode  = errors.New("verification code is incorrect")
	ErrRefreshRejected    = errors.New("refresh token is invalid or expired")
	ErrTooManyAttempts    = errors.New("too many attempts, try again later")
)

const (
	loginAttemptLimit  = 10
	loginAttemptWindow = time.Minute
)

// AuthService implements local-credential authentication and token issuance.
type AuthService interface {
	CheckUser(ctx context.Context, req dto.CheckUserRequest) (dto.CheckUserResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) (dto.ProfileResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.TokenPairResponse, error)
	VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) (dto.TokenPairResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (dto.TokenPairResponse, error)
	Exchange(ctx context.Context, req dto.ExchangeRequest) (dto.TokenPairResponse, error)
	Logout(ctx context.Context, userID string) error
}

type authService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	tokens     repository.RefreshTokenRepository
	verifier   *auth.Verifier
	resolver   *identity.Resolver
	cache      *redis.Client
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewAuthService builds the authentication service.
func NewAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	tokens repository.RefreshTokenRepository,
	verifier *auth.Verifier,
	resolver *identity.Resolver,
	cache *redis.Client,
	secret string,
	accessTTL, refreshTTL time.Duration,
	validate *validator.Validate,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		users:      users,
		roles:      roles,
		tokens:     tokens,
		verifier:   verifier,
		resolver:   resolver,
		cache:      cache,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		validate:   validate,
		logger:     logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) CheckUser(ctx context.Context, req dto.CheckUserRequest) (dto.CheckUserResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.CheckUserResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CheckUserResponse{Exists: false}, nil
	}
	if err != nil {
		return dto.CheckUserResponse{}, err
	}

	return dto.CheckUserResponse{Exists: true, IsVerified: user.IsVerified}, nil
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (dto.ProfileResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.ProfileResponse{}, err
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return dto.ProfileResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ProfileResponse{}, err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	name := req.Name
	if name == "" {
		name = models.GenericUserName
	}

	verifyCode, err := generateVerifyCode()
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	email := req.Email
	user := models.User{
		Email:          &email,
		Name:           name,
		HashedPassword: &hashed,
		IsActive:       true,
		IsVerified:     false,
		VerifyCode:     verifyCode,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return dto.ProfileResponse{}, err
	}

	if role, err := s.roles.GetDefault(ctx); err == nil {
		if err := s.users.AssignRole(ctx, user.ID, role.ID, nil); err != nil {
			return dto.ProfileResponse{}, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ProfileResponse{}, err
	}

	// TODO: deliver the verification code by email once the mailer lands.
	s.logger.Info().Str("user_id", user.ID).Str("email", req.Email).Msg("account registered")

	created, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	return profileResponse(created), nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.TokenPairResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.TokenPairResponse{}, err
	}

	if err := s.checkRateLimit(ctx, req.Email); err != nil {
		return dto.TokenPairResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.TokenPairResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return dto.TokenPairResponse{}, err
	}

	if user.HashedPassword == nil || !auth.CheckPassword(req.Password, *user.HashedPassword) {
		return dto.TokenPairResponse{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return dto.TokenPairResponse{}, identity.ErrUserInactive
	}

	if !user.IsVerified {
		return dto.TokenPairResponse{}, ErrAccountNotVerified
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) (dto.TokenPairResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.TokenPairResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.TokenPairResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return dto.TokenPairResponse{}, err
	}

	if user.VerifyCode == "" || user.VerifyCode != req.Code {
		return dto.TokenPairResponse{}, ErrInvalidVerifyCode
	}

	user.IsVerified = true
	user.VerifyCode = ""
	if err := s.users.Update(ctx, &user); err != nil {
		return dto.TokenPairResponse{}, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("email verified")

	return s.issueTokens(ctx, user)
}

// Refresh rotates the presented refresh token. The old token is revoked
// before a new pair is issued so each token can be exchanged at most once.
func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (dto.TokenPairResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.TokenPairResponse{}, err
	}

	stored, err := s.tokens.GetByHash(ctx, auth.HashRefreshToken(req.RefreshToken))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.TokenPairResponse{}, ErrRefreshRejected
	}
	if err != nil {
		return dto.TokenPairResponse{}, err
	}

	if !stored.IsUsable(time.Now()) {
		return dto.TokenPairResponse{}, ErrRefreshRejected
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return dto.TokenPairResponse{}, ErrRefreshRejected
	}
	if !user.IsActive {
		return dto.TokenPairResponse{}, identity.ErrUserInactive
	}

	if err := s.tokens.Revoke(ctx, stored.ID); err != nil {
		return dto.TokenPairResponse{}, err
	}

	return s.issueTokens(ctx, user)
}

// Exchange verifies a provider-issued credential and mints local tokens for
// the resolved account, provisioning it when necessary.
func (s *authService) Exchange(ctx context.Context, req dto.ExchangeRequest) (dto.TokenPairResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.TokenPairResponse{}, err
	}

	claims, err := s.verifier.Verify(ctx, req.Token)
	if err != nil {
		return dto.TokenPairResponse{}, err
	}

	resolved, err := s.resolver.Resolve(ctx, claims)
	if err != nil {
		return dto.TokenPairResponse{}, err
	}

	user, err := s.users.GetByID(ctx, resolved.ID)
	if err != nil {
		return dto.TokenPairResponse{}, err
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) Logout(ctx context.Context, userID string) error {
	return s.tokens.RevokeAllForUser(ctx, userID)
}

func (s *authService) issueTokens(ctx context.Context, user models.User) (dto.TokenPairResponse, error) {
	ident := identity.FromUser(user)

	access, err := auth.NewAccessToken(s.secret, s.accessTTL, user.ID, ident.PrimaryRole, auth.DefaultScopesForRole(ident.PrimaryRole))
	if err != nil {
		return dto.TokenPairResponse{}, err
	}

	refresh := auth.NewRefreshToken()
	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashRefreshToken(refresh),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.tokens.Create(ctx, &record); err != nil {
		return dto.TokenPairResponse{}, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login time")
	}

	return dto.TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         profileResponse(user),
	}, nil
}

// checkRateLimit applies a fixed window counter per email. Redis being down
// does not block logins.
func (s *authService) checkRateLimit(ctx context.Context, email string) error {
	if s.cache == nil {
		return nil
	}

	key := "auth:login:" + email
	count, err := s.cache.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("login rate limiter unavailable")
		return nil
	}

	if count == 1 {
		s.cache.Expire(ctx, key, loginAttemptWindow)
	}

	if count > loginAttemptLimit {
		return ErrTooManyAttempts
	}

	return nil
}

func generateVerifyCode() (string, error) {
	const digits = "0123456789"

	buf := make([]byte, 6)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = digits[n.Int64()]
	}

	return string(buf), nil
}

func profileResponse(user models.User) dto.ProfileResponse {
	ident := identity.FromUser(user)

	roles := user.RoleNames()
	if len(roles) == 0 {
		roles = []string{rbac.RoleStudent}
	}

	return dto.ProfileResponse{
		ID:         user.ID,
		Email:      user.EmailValue(),
		Name:       user.Name,
		AvatarURL:  user.AvatarURL,
		Role:       ident.PrimaryRole,
		Roles:      roles,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
		LastLogin:  user.LastLogin,
		CreatedAt:  user.CreatedAt,
	}
}
