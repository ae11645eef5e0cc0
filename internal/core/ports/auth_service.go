package ports

import (
	"context"

	"github.com/hrdesk/hr-auth/internal/core/domain"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is what a successful register or login hands back to the client.
type AuthResult struct {
	Token string
	User  *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
}
