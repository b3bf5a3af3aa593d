package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/observability"
)

// Claims is the normalized result of a successful token verification,
// independent of which strategy produced it.
type Claims struct {
	SubjectID string
	Email     string
	Name      string
	Role      string
	Verified  bool
}

// SessionVerifier checks an opaque session token against the identity
// provider's introspection endpoint.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (Claims, error)
}

// Verifier turns a bearer string into normalized claims by trying the
// configured strategies in order: locally-issued JWT, issuer-signed JWT via
// JWKS, then session introspection for non-JWT tokens.
type Verifier struct {
	secret   string
	keys     *KeyCache
	sessions SessionVerifier
	logger   zerolog.Logger
}

// NewVerifier constructs the combined verifier. sessions may be nil, in which
// case non-JWT tokens are rejected outright.
func NewVerifier(secret string, keys *KeyCache, sessions SessionVerifier, logger zerolog.Logger) *Verifier {
	return &Verifier{
		secret:   secret,
		keys:     keys,
		sessions: sessions,
		logger:   logger.With().Str("component", "token_verifier").Logger(),
	}
}

// Verify attempts all applicable strategies and returns the first success.
// Once every strategy is exhausted the most specific failure wins: key-set
// unavailability over expiry over a generic verification failure.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrMissingToken
	}

	isJWT := strings.Count(token, ".") == 2

	var failures []error

	if isJWT {
		if claims, err := v.verifyLocal(token); err == nil {
			observability.AuthAttempts().WithLabelValues("local", "success").Inc()
			return claims, nil
		} else {
			observability.AuthAttempts().WithLabelValues("local", "failure").Inc()
			v.logger.Debug().Err(err).Msg("local jwt verification failed")
			failures = append(failures, err)
		}

		if claims, err := v.verifyExternal(ctx, token); err == nil {
			observability.AuthAttempts().WithLabelValues("jwks", "success").Inc()
			return claims, nil
		} else {
			observability.AuthAttempts().WithLabelValues("jwks", "failure").Inc()
			v.logger.Debug().Err(err).Msg("external jwt verification failed")
			failures = append(failures, err)
		}
	} else if v.sessions != nil {
		claims, err := v.sessions.VerifySession(ctx, token)
		if err == nil {
			claims.sanitize()
			observability.AuthAttempts().WithLabelValues("session", "success").Inc()
			return claims, nil
		}
		observability.AuthAttempts().WithLabelValues("session", "failure").Inc()
		v.logger.Debug().Err(err).Msg("session introspection failed")
		failures = append(failures, err)
	}

	return Claims{}, combineFailures(failures)
}

func (v *Verifier) verifyLocal(token string) (Claims, error) {
	claims, err := ParseLocalToken(v.secret, token)
	if err != nil {
		return Claims{}, err
	}

	return Claims{
		SubjectID: claims.Subject,
		Role:      claims.Role,
	}, nil
}

func (v *Verifier) verifyExternal(ctx context.Context, tokenString string) (Claims, error) {
	if v.keys == nil {
		return Claims{}, ErrVerificationFailed
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrMissingKeyID
		}
		return v.keys.PublicKey(ctx, kid)
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, ErrMissingKeyID), errors.Is(err, ErrInvalidKeyID), errors.Is(err, ErrKeySetUnavailable):
			return Claims{}, err
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims := claimsFromMap(mapClaims)
	if claims.SubjectID == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// claimsFromMap normalizes an external claim map. The issuer's claim shape
// depends on dashboard configuration, so several names are tried per field.
func claimsFromMap(m jwt.MapClaims) Claims {
	claims := Claims{
		SubjectID: pickString(m, "sub", "user_id", "id"),
		Email:     pickString(m, "email", "email_address", "primary_email_address"),
		Name:      pickString(m, "name", "full_name"),
	}

	if claims.Name == "" {
		first := pickString(m, "first_name", "given_name")
		last := pickString(m, "last_name", "family_name")
		claims.Name = strings.TrimSpace(first + " " + last)
	}

	for _, key := range []string{"email_verified", "verified"} {
		if value, ok := m[key].(bool); ok {
			claims.Verified = value
			break
		}
	}

	claims.sanitize()
	return claims
}

// sanitize drops templated placeholder values such as "{{user.email}}" that
// indicate a misconfigured claim template on the issuer side.
func (c *Claims) sanitize() {
	c.Email = dropPlaceholder(c.Email)
	c.Name = dropPlaceholder(c.Name)
}

func dropPlaceholder(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}") {
		return ""
	}
	return trimmed
}

func pickString(m jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value, ok := m[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func combineFailures(failures []error) error {
	for _, err := range failures {
		if errors.Is(err, ErrKeySetUnavailable) {
			return err
		}
	}
	for _, err := range failures {
		if errors.Is(err, ErrTokenExpired) {
			return err
		}
	}
	for _, err := range failures {
		if errors.Is(err, ErrMissingKeyID) || errors.Is(err, ErrInvalidKeyID) {
			return err
		}
	}
	if len(failures) == 0 {
		return ErrVerificationFailed
	}
	return fmt.Errorf("%w: %v", ErrVerificationFailed, errors.Join(failures...))
}
