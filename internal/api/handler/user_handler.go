package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrdesk/hr-auth/internal/core/ports"
)

type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me returns the profile of the caller.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Profile
// @Failure      401  {object}  messageResponse
// @Failure      500  {object}  messageResponse
// @Router       /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.Request().Context(), claims.SubjectID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user.Profile())
}
