package api

import (
	"fmt"
	"net/http"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the user view returned by the server.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// ErrorResponse is the server's error envelope.
type ErrorResponse struct {
	Message string `json:"message"`
}

// Error is a non-2xx answer from the server. Message is empty when the body
// did not carry the error envelope.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// Unauthorized reports whether the server rejected the caller's credentials.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}
