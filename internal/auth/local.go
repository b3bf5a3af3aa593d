package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LocalClaims is the payload of locally-issued HS256 access tokens.
type LocalClaims struct {
	Role   string   `json:"role"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// NewAccessToken issues an HS256 access token for the given user.
func NewAccessToken(secret string, ttl time.Duration, userID, role string, scopes []string) (string, error) {
	if scopes == nil {
		scopes = DefaultScopesForRole(role)
	}

	now := time.Now().UTC()
	claims := LocalClaims{
		Role:   role,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseLocalToken validates a locally-issued token and returns its claims.
func ParseLocalToken(secret, tokenString string) (*LocalClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LocalClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*LocalClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}

// DefaultScopesForRole returns the built-in scope list embedded in access tokens.
func DefaultScopesForRole(role string) []string {
	switch role {
	case "admin":
		return []string{"*"}
	case "teacher":
		return []string{"dashboard:read", "progress:read", "chat:write", "students:read"}
	case "student":
		return []string{"dashboard:read", "progress:write", "chat:write", "favourites:write", "profile:write"}
	default:
		return []string{"dashboard:read"}
	}
}

// NewRefreshToken generates an opaque refresh credential.
func NewRefreshToken() string {
	return uuid.NewString()
}

// HashRefreshToken digests a refresh token for storage and lookup.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
