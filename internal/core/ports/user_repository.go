package ports

import (
	"context"

	"github.com/hrdesk/hr-auth/internal/core/domain"
)

// UserRepository persists dashboard accounts. Emails are unique after
// normalisation; Create returns domain.ErrDuplicateEmail when that is violated.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
