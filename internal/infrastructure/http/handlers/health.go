package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

const readinessTimeout = 3 * time.Second

// HealthHandler handles GET /health, the liveness probe.
// Returns 200 immediately; confirms the process is alive.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Check pings a single dependency.
type Check func(ctx context.Context) error

// ReadinessHandler handles GET /health/ready, the readiness probe.
// Required checks (the accounts store) make the service unready when they
// fail; optional ones (the throttle backend) only mark it degraded.
type ReadinessHandler struct {
	required map[string]Check
	optional map[string]Check
}

func NewReadinessHandler() *ReadinessHandler {
	return &ReadinessHandler{
		required: make(map[string]Check),
		optional: make(map[string]Check),
	}
}

// Require registers a dependency the service cannot work without.
func (h *ReadinessHandler) Require(name string, check Check) *ReadinessHandler {
	h.required[name] = check
	return h
}

// Optional registers a dependency whose loss degrades but does not stop the service.
func (h *ReadinessHandler) Optional(name string, check Check) *ReadinessHandler {
	h.optional[name] = check
	return h
}

type dependencyStatus struct {
	Status   string `json:"status"`
	Required bool   `json:"required"`
	Error    string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *ReadinessHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	deps := make(map[string]dependencyStatus, len(h.required)+len(h.optional))
	ready, degraded := true, false

	for _, name := range sortedNames(h.required) {
		if err := h.required[name](ctx); err != nil {
			deps[name] = dependencyStatus{Status: "unhealthy", Required: true, Error: err.Error()}
			ready = false
			continue
		}
		deps[name] = dependencyStatus{Status: "ok", Required: true}
	}
	for _, name := range sortedNames(h.optional) {
		if err := h.optional[name](ctx); err != nil {
			deps[name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			degraded = true
			continue
		}
		deps[name] = dependencyStatus{Status: "ok"}
	}

	status, httpStatus := "ok", http.StatusOK
	switch {
	case !ready:
		status, httpStatus = "unavailable", http.StatusServiceUnavailable
	case degraded:
		status = "degraded"
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}

func sortedNames(m map[string]Check) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
