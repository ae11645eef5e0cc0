package ports

import (
	"context"

	"github.com/hrdesk/hr-auth/internal/core/domain"
)

// PasswordHasher derives and checks password hashes. Verify returns false, nil
// on a mismatch; an empty hash is compared against a dummy and never matches.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
}

// TokenService issues and verifies signed session tokens.
type TokenService interface {
	Issue(subjectID, role string) (string, error)
	Verify(token string) (*domain.Claims, error)
}

// RateLimiter counts attempts per key within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
