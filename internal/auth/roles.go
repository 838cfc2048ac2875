package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/diagnostic-login/pkg/util"
)

// RequireStaff ensures the authenticated caller is a staff member.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("Authentication credentials were not provided.")
		}
		if !principal.User.IsStaff {
			return apperrors.NewForbidden("You do not have permission to perform this action.")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal was loaded.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("Authentication credentials were not provided.")
		}
		return c.Next()
	}
}
