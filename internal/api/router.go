package api

import (
	"net"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/hrdesk/hr-auth/docs"
	"github.com/hrdesk/hr-auth/internal/api/handler"
	"github.com/hrdesk/hr-auth/internal/api/middleware"
	"github.com/hrdesk/hr-auth/internal/core/domain"
	"github.com/hrdesk/hr-auth/internal/core/ports"
	"github.com/hrdesk/hr-auth/internal/infrastructure/http/handlers"
)

const bodyLimit = "64K"

// Dependencies is everything NewRouter wires into the HTTP surface.
// A nil Limiter disables the register/login throttle. Without
// TrustedProxies the client IP is the connection's peer address.
type Dependencies struct {
	Log            zerolog.Logger
	AuthService    ports.AuthService
	Tokens         middleware.TokenVerifier
	Limiter        ports.RateLimiter
	Readiness      *handlers.ReadinessHandler
	CORSOrigins    []string
	TrustedProxies []*net.IPNet
	Swagger        bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.IPExtractor = ipExtractor(deps.TrustedProxies)

	// Each router owns its HTTP metrics registry; custom auth metrics live
	// in the default registry and are gathered alongside.
	reg := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "hr_auth",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	userHandler := handler.NewUserHandler(deps.AuthService)
	authMiddleware := middleware.Auth(deps.Tokens)

	// --- Auth routes ---
	authGroup := e.Group("/api/auth")
	if deps.Limiter != nil {
		authGroup.Use(middleware.Throttle(deps.Limiter, deps.Log))
	}
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// --- Protected routes ---
	users := e.Group("/api/users", authMiddleware, middleware.RBAC(domain.RoleAdmin, domain.RoleHR))
	users.GET("/me", userHandler.Me)

	// --- Health probes (no auth required) ---
	readiness := deps.Readiness
	if readiness == nil {
		readiness = handlers.NewReadinessHandler()
	}
	e.GET("/health", handlers.NewHealthHandler().Liveness) // liveness  – is the process alive?
	e.GET("/health/ready", readiness.Readiness)            // readiness – are dependencies up?

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))
	if deps.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

// ipExtractor honours X-Forwarded-For only when the peer is a listed proxy,
// so clients cannot pick their own throttle key.
func ipExtractor(proxies []*net.IPNet) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, p := range proxies {
		opts = append(opts, echo.TrustIPRange(p))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
