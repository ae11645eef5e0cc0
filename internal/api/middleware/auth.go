package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrdesk/hr-auth/internal/api/metrics"
	"github.com/hrdesk/hr-auth/internal/core/domain"
)

// ClaimsKey is the echo.Context key holding the verified domain.Claims.
const ClaimsKey = "claims"

// TokenVerifier is the part of the token service the gate needs.
type TokenVerifier interface {
	Verify(token string) (*domain.Claims, error)
}

// Auth admits a request only if it carries a valid bearer token. It places
// the claims on the echo context and on the request context. It does not
// check roles.
func Auth(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
				return domain.ErrUnauthenticated
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
				return domain.ErrUnauthenticated
			}

			claims, err := tokens.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				metrics.TokenRejectionsTotal.WithLabelValues("invalid").Inc()
				return err
			}

			c.Set(ClaimsKey, *claims)
			c.SetRequest(c.Request().WithContext(domain.WithClaims(c.Request().Context(), *claims)))

			return next(c)
		}
	}
}
