package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/collipulli/helpdesk/internal/domain"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

// RequireAnyRole ensures the caller has a profile with a recognised role.
func RequireAnyRole() fiber.Handler {
	return RequireRole()
}

// RequireAdmin ensures the caller is an admin.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}

// RequireRole ensures the principal holds one of the allowed roles. With
// no roles given, any valid role passes.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.User == nil || !principal.User.Role.Valid() {
			return apperrors.NewForbidden("profile has no usable role")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
