package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/auth"
	"github.com/regod-app/regod-api/internal/identity"
	"github.com/regod-app/regod-api/internal/utils"
)

const identityLocalKey = "identity"

// Authenticate verifies the bearer token and resolves the caller's identity
// before any handler runs. The resolved identity lands in request locals for
// the guards and handlers downstream.
func Authenticate(verifier *auth.Verifier, resolver *identity.Resolver, logger zerolog.Logger) fiber.Handler {
	authLogger := logger.With().Str("component", "authenticate").Logger()

	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, auth.CodeUnauthenticated, "authentication required")
		}

		claims, err := verifier.Verify(c.Context(), token)
		if err != nil {
			if auth.IsInfrastructureFailure(err) {
				authLogger.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("token verification infrastructure failure")
				return utils.SendErrorCode(c, fiber.StatusInternalServerError, auth.ErrorCode(err), "token verification unavailable")
			}
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, auth.ErrorCode(err), "invalid or expired token")
		}

		ident, err := resolver.Resolve(c.Context(), claims)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrUserInactive):
				return utils.SendErrorCode(c, fiber.StatusUnauthorized, "USER_INACTIVE", "user account is inactive")
			case errors.Is(err, identity.ErrUserNotFound):
				return utils.SendErrorCode(c, fiber.StatusUnauthorized, "USER_NOT_FOUND", "user not found")
			default:
				// Fail closed: a failed reconciliation write must not let the
				// request proceed with a stale identity.
				authLogger.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("identity resolution failed")
				return utils.SendErrorCode(c, fiber.StatusUnauthorized, auth.CodeTokenVerificationFailed, "authentication failed")
			}
		}

		c.Locals(identityLocalKey, ident)
		c.Locals("user_id", ident.ID)
		c.Locals("user_role", ident.PrimaryRole)

		return c.Next()
	}
}

// IdentityFromContext returns the resolved identity bound to the request.
func IdentityFromContext(c *fiber.Ctx) (identity.Identity, bool) {
	value := c.Locals(identityLocalKey)
	if value == nil {
		return identity.Identity{}, false
	}
	ident, ok := value.(identity.Identity)
	return ident, ok
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authorization := c.Get("Authorization")
	if authorization == "" {
		return "", auth.ErrMissingToken
	}

	const bearer = "bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
		return "", auth.ErrMissingToken
	}

	token := strings.TrimSpace(authorization[len(bearer):])
	if token == "" {
		return "", auth.ErrMissingToken
	}
	return token, nil
}
