package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/casework-service/internal/accesscontrol"
	"github.com/spec-kit/casework-service/internal/domain"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// RequireAuthenticated ensures a principal is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the principal holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if err := accesscontrol.EnsureRole(principal.Role, allowed...); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireRoleAtLeast ensures the principal ranks at or above minimum.
func RequireRoleAtLeast(minimum domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if err := accesscontrol.RoleAtLeast(principal.Role, minimum); err != nil {
			return err
		}
		return c.Next()
	}
}
