package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/hrdesk/hr-auth/internal/core/domain"
)

// RBAC admits requests whose token role is one of allowedRoles. Mount it
// after Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(ClaimsKey).(domain.Claims)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if _, ok := allowed[claims.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
