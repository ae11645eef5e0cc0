package domain

import (
	"strings"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleHR    = "hr"
)

// ValidRole reports whether role belongs to the closed set of dashboard roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleHR
}

// User is a registered dashboard account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the public view of a User returned to clients.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree on a single spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
