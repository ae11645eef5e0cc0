package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hrdesk/hr-auth/internal/api/metrics"
	"github.com/hrdesk/hr-auth/internal/core/domain"
	"github.com/hrdesk/hr-auth/internal/core/ports"
)

// Throttle limits attempts per client IP and route. When the limiter backend
// fails the request is let through and a warning is logged.
func Throttle(limiter ports.RateLimiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			allowed, err := limiter.Allow(c.Request().Context(), route+":"+c.RealIP())
			if err != nil {
				log.Warn().Err(err).Str("path", route).Msg("throttle unavailable, allowing request")
				return next(c)
			}
			if !allowed {
				metrics.ThrottledTotal.WithLabelValues(route).Inc()
				return domain.ErrTooManyAttempts
			}
			return next(c)
		}
	}
}
