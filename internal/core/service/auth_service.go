package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hrdesk/hr-auth/internal/api/metrics"
	"github.com/hrdesk/hr-auth/internal/core/domain"
	"github.com/hrdesk/hr-auth/internal/core/ports"
)

// AuthService implements registration, login and identity lookup.
type AuthService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenService
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(repo ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenService, log zerolog.Logger) *AuthService {
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens, log: log, now: time.Now}
}

// Register creates an hr account and returns a session for it.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	switch {
	case name == "":
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.NewValidationError("name", "name is required")
	case email == "":
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.NewValidationError("email", "email is required")
	case in.Password == "":
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.NewValidationError("password", "password is required")
	}

	// Fast path; the unique index still settles concurrent registrations.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleHR,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		} else {
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	token, err := s.tokens.Issue(created.ID, created.Role)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("user registered")

	return &ports.AuthResult{Token: token, User: created}, nil
}

// Login verifies credentials. Unknown email and wrong password return the
// same domain.ErrInvalidCredentials after the same amount of bcrypt work.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if _, verr := s.hasher.Verify(ctx, password, ""); verr != nil {
			s.log.Debug().Err(verr).Msg("dummy password comparison failed")
		}
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !ok {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Debug().Str("user_id", user.ID).Msg("user logged in")

	return &ports.AuthResult{Token: token, User: user}, nil
}

// Me resolves the account behind a verified token. A subject that no longer
// exists is treated as unauthenticated.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: subject %s no longer exists", domain.ErrUnauthenticated, userID)
		}
		return nil, err
	}
	return user, nil
}
