package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kubikportal/portal-service/internal/domain"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// EnsureApproved is the authorization predicate every lifecycle operation
// runs first: only approved accounts may act.
func EnsureApproved(u *domain.User) error {
	if u == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if u.Status != domain.UserStatusApproved {
		return apperrors.NewUnauthorized("account is not approved")
	}
	return nil
}

// EnsureSuperAdmin verifies an approved super admin actor.
func EnsureSuperAdmin(u *domain.User) error {
	if err := EnsureApproved(u); err != nil {
		return err
	}
	if !u.IsSuperAdmin() {
		return apperrors.NewForbidden("super admin role required")
	}
	return nil
}

// RequireApproved gates routes to approved accounts.
func RequireApproved() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if err := EnsureApproved(principal.User); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireSuperAdmin gates routes to approved super admins.
func RequireSuperAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if err := EnsureSuperAdmin(principal.User); err != nil {
			return err
		}
		return c.Next()
	}
}
