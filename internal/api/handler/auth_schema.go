package handler

import "github.com/hrdesk/hr-auth/internal/core/domain"

// registerRequest is the body of POST /api/auth/register.
// bcrypt only reads the first 72 bytes, so longer passwords are refused.
type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// loginRequest is the body of POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  domain.Profile `json:"user"`
}

// messageResponse documents the error envelope for swagger.
type messageResponse struct {
	Message string `json:"message"`
}
