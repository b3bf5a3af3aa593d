package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/regod-app/regod-api/internal/observability"
	"github.com/regod-app/regod-api/internal/utils"
)

// RequirePermission rejects the request before the handler runs unless the
// resolved identity holds the named permission (or the admin catch-all).
// The required permission is named in the 403 message; the gate itself never
// mutates anything.
func RequirePermission(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident, ok := IdentityFromContext(c)
		if !ok {
			observability.GateDenials().WithLabelValues("unauthenticated").Inc()
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		}

		if !ident.HasPermission(name) {
			observability.GateDenials().WithLabelValues("permission").Inc()
			return utils.SendErrorCode(c, fiber.StatusForbidden, "FORBIDDEN",
				fmt.Sprintf("permission %q required", name))
		}

		return c.Next()
	}
}

// RequireRole rejects the request unless the identity holds at least one of
// the given roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident, ok := IdentityFromContext(c)
		if !ok {
			observability.GateDenials().WithLabelValues("unauthenticated").Inc()
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		}

		if !ident.HasAnyRole(roles...) {
			observability.GateDenials().WithLabelValues("role").Inc()
			return utils.SendErrorCode(c, fiber.StatusForbidden, "FORBIDDEN",
				fmt.Sprintf("role %q required", strings.Join(roles, " or ")))
		}

		return c.Next()
	}
}
