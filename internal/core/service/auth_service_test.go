package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hrdesk/hr-auth/internal/core/domain"
	"github.com/hrdesk/hr-auth/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu        sync.Mutex
	byEmail   map[string]*domain.User
	nextID    int
	findErr   error
	createErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, domain.ErrDuplicateEmail
	}
	r.nextID++
	copy := cloneUser(user)
	copy.ID = "u" + strconv.Itoa(r.nextID)
	r.byEmail[copy.Email] = cloneUser(copy)
	return copy, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if u, ok := r.byEmail[domain.NormalizeEmail(email)]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// countingHasher records which hashes Verify was asked to compare against.
type countingHasher struct {
	ports.PasswordHasher
	verified []string
}

func (h *countingHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	h.verified = append(h.verified, hash)
	return h.PasswordHasher.Verify(ctx, plaintext, hash)
}

func newTestAuthService(t *testing.T, repo ports.UserRepository) (*AuthService, *TokenService, *countingHasher) {
	t.Helper()
	tokens, err := NewTokenService(testSecret)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	hasher := &countingHasher{PasswordHasher: newTestHasher(t, nil)}
	return NewAuthService(repo, hasher, tokens, zerolog.Nop()), tokens, hasher
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens, _ := newTestAuthService(t, repo)

	res, err := svc.Register(context.Background(), ports.RegisterInput{Name: "  Ann ", Email: " Ann@X.io", Password: "pw1"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Token == "" || res.User == nil {
		t.Fatalf("expected token and user, got %+v", res)
	}
	if res.User.Name != "Ann" || res.User.Email != "ann@x.io" || res.User.Role != domain.RoleHR {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if res.User.PasswordHash == "" || res.User.PasswordHash == "pw1" {
		t.Fatalf("expected password to be hashed")
	}
	if res.User.CreatedAt.IsZero() {
		t.Fatalf("expected createdAt to be set")
	}

	claims, err := tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.SubjectID != res.User.ID || claims.Role != domain.RoleHR {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService(t, newStubUserRepo())

	cases := []struct {
		field string
		in    ports.RegisterInput
	}{
		{"name", ports.RegisterInput{Name: "  ", Email: "a@x.io", Password: "pw"}},
		{"email", ports.RegisterInput{Name: "A", Email: "", Password: "pw"}},
		{"password", ports.RegisterInput{Name: "A", Email: "a@x.io", Password: ""}},
	}
	for _, tc := range cases {
		_, err := svc.Register(context.Background(), tc.in)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.field, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("expected field %q, got %q", tc.field, ve.Field)
		}
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, _ := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), ports.RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "pw1"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := svc.Register(context.Background(), ports.RegisterInput{Name: "Ann 2", Email: "ANN@x.io", Password: "pw2"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if len(repo.byEmail) != 1 {
		t.Fatalf("expected store to be unchanged, got %d users", len(repo.byEmail))
	}
}

func TestAuthService_Register_LostRace(t *testing.T) {
	repo := newStubUserRepo()
	repo.createErr = domain.ErrDuplicateEmail
	svc, _, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), ports.RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "pw1"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail from index, got %v", err)
	}
}

func TestAuthService_Register_StorageFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = fmt.Errorf("%w: connection reset", domain.ErrStorage)
	svc, _, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), ports.RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "pw1"})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestAuthService_Login_Success(t *testing.T) {
	svc, _, _ := newTestAuthService(t, newStubUserRepo())

	reg, err := svc.Register(context.Background(), ports.RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "pw1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	res, err := svc.Login(context.Background(), "Ann@X.io ", "pw1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" || res.Token == reg.Token {
		t.Fatalf("expected a fresh token")
	}
	if res.User.ID != reg.User.ID {
		t.Fatalf("expected same user, got %+v", res.User)
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, hasher := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), ports.RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "pw1"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, wrongPw := svc.Login(context.Background(), "ann@x.io", "nope")
	_, unknown := svc.Login(context.Background(), "ghost@x.io", "pw1")

	if !errors.Is(wrongPw, domain.ErrInvalidCredentials) || !errors.Is(unknown, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPw, unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("error messages differ: %q vs %q", wrongPw, unknown)
	}
	if len(hasher.verified) != 2 {
		t.Fatalf("expected a bcrypt comparison on both paths, got %d", len(hasher.verified))
	}
	if hasher.verified[1] != "" {
		t.Fatalf("expected unknown email to compare against the dummy hash")
	}
}

func TestAuthService_Login_EmptyInput(t *testing.T) {
	svc, _, _ := newTestAuthService(t, newStubUserRepo())

	if _, err := svc.Login(context.Background(), "", "pw"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "a@x.io", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_StorageFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = fmt.Errorf("%w: timeout", domain.ErrStorage)
	svc, _, _ := newTestAuthService(t, repo)

	if _, err := svc.Login(context.Background(), "ann@x.io", "pw1"); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Me
// ---------------------------------------------------------------------------

func TestAuthService_Me(t *testing.T) {
	svc, _, _ := newTestAuthService(t, newStubUserRepo())

	reg, err := svc.Register(context.Background(), ports.RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "pw1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, err := svc.Me(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.Email != "ann@x.io" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for a vanished subject, got %v", err)
	}
}
