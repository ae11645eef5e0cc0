package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/hrdesk/hr-auth/internal/core/domain"
)

// ctxClaims extracts the claims injected by the Auth middleware. Absence
// means the route was mounted without the gate and is treated as 401.
func ctxClaims(c echo.Context) (domain.Claims, error) {
	claims, ok := domain.ClaimsFromContext(c.Request().Context())
	if !ok || claims.SubjectID == "" {
		return domain.Claims{}, domain.ErrUnauthenticated
	}
	return claims, nil
}
