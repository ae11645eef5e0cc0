package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hrdesk/hr-auth/internal/core/domain"
	"github.com/hrdesk/hr-auth/internal/core/service"
)

// memUserRepo is an in-memory ports.UserRepository keyed by normalised email.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Email]; ok {
		return nil, domain.ErrDuplicateEmail
	}
	stored := *u
	stored.ID = "64b7f0c2a1e4d5f6a7b8c9d" + strconv.Itoa(len(r.users))
	r.users[stored.Email] = stored
	out := stored
	return &out, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			out := u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, error) { return false, nil }

// countingLimiter allows limit attempts per key.
type countingLimiter struct {
	mu    sync.Mutex
	limit int
	seen  map[string]int
}

func newCountingLimiter(limit int) *countingLimiter {
	return &countingLimiter{limit: limit, seen: make(map[string]int)}
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[key]++
	return l.seen[key] <= l.limit, nil
}

func (l *countingLimiter) keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

func newTestRouter(t *testing.T, mutate func(*Dependencies)) *echo.Echo {
	t.Helper()
	tokens, err := service.NewTokenService("router-test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	hasher, err := service.NewBcryptHasher(bcrypt.MinCost, nil)
	if err != nil {
		t.Fatalf("NewBcryptHasher: %v", err)
	}
	deps := Dependencies{
		Log:         zerolog.Nop(),
		AuthService: service.NewAuthService(newMemUserRepo(), hasher, tokens, zerolog.Nop()),
		Tokens:      tokens,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewRouter(deps)
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

type sessionBody struct {
	Token string         `json:"token"`
	User  domain.Profile `json:"user"`
}

func TestRouter_SessionLifecycle(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"name":"Ann","email":"ann@x.io","password":"pw1"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	reg := decode[sessionBody](t, rec)
	if reg.Token == "" || reg.User.Email != "ann@x.io" || reg.User.Role != domain.RoleHR {
		t.Fatalf("unexpected register body: %+v", reg)
	}

	rec = do(e, http.MethodPost, "/api/auth/login", `{"email":"ann@x.io","password":"pw1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	login := decode[sessionBody](t, rec)
	if login.Token == "" || login.Token == reg.Token {
		t.Fatalf("expected a fresh token on login")
	}

	rec = do(e, http.MethodGet, "/api/users/me", "", login.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("me leaked a password field: %s", rec.Body.String())
	}
	me := decode[domain.Profile](t, rec)
	if me.ID != reg.User.ID || me.Name != "Ann" {
		t.Fatalf("unexpected profile: %+v", me)
	}

	corrupted := login.Token[:len(login.Token)-6] + "AAAAAA"
	if corrupted == login.Token {
		corrupted = login.Token[:len(login.Token)-6] + "BBBBBB"
	}
	rec = do(e, http.MethodGet, "/api/users/me", "", corrupted)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("corrupted token: expected 401, got %d", rec.Code)
	}
	if msg := decode[errorResponse](t, rec).Message; msg != "Token is not valid" {
		t.Fatalf("unexpected message %q", msg)
	}

	rec = do(e, http.MethodGet, "/api/users/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}
	if msg := decode[errorResponse](t, rec).Message; msg != "Authorization denied" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRouter_DuplicateRegistration(t *testing.T) {
	e := newTestRouter(t, nil)

	if rec := do(e, http.MethodPost, "/api/auth/register", `{"name":"Ann","email":"ann@x.io","password":"pw1"}`, ""); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}
	rec := do(e, http.MethodPost, "/api/auth/register", `{"name":"Ann","email":" ANN@x.io","password":"pw2"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", rec.Code)
	}
	if msg := decode[errorResponse](t, rec).Message; msg != "User already exists" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRouter_LoginFailuresLookTheSame(t *testing.T) {
	e := newTestRouter(t, nil)
	do(e, http.MethodPost, "/api/auth/register", `{"name":"Ann","email":"ann@x.io","password":"pw1"}`, "")

	wrongPw := do(e, http.MethodPost, "/api/auth/login", `{"email":"ann@x.io","password":"nope"}`, "")
	unknown := do(e, http.MethodPost, "/api/auth/login", `{"email":"ghost@x.io","password":"pw1"}`, "")

	if wrongPw.Code != http.StatusBadRequest || unknown.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for both, got %d / %d", wrongPw.Code, unknown.Code)
	}
	if wrongPw.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %s vs %s", wrongPw.Body.String(), unknown.Body.String())
	}
}

func TestRouter_ValidationMessage(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"name":"Ann","email":"nope","password":"pw1"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decode[errorResponse](t, rec).Message; msg != "email must be a valid email" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRouter_Throttled(t *testing.T) {
	e := newTestRouter(t, func(d *Dependencies) { d.Limiter = denyLimiter{} })

	rec := do(e, http.MethodPost, "/api/auth/login", `{"email":"ann@x.io","password":"pw1"}`, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	e := newTestRouter(t, func(d *Dependencies) { d.Swagger = true })

	if rec := do(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}

	do(e, http.MethodGet, "/health", "", "")
	rec := do(e, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hr_auth_") {
		t.Fatalf("expected hr_auth metrics in exposition")
	}

	if rec := do(e, http.MethodGet, "/swagger/doc.json", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("swagger: expected 200, got %d", rec.Code)
	}

	if rec := do(e, http.MethodGet, "/no/such/route", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route: expected 404, got %d", rec.Code)
	}
}

func loginFrom(e *echo.Echo, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ann@x.io","password":"pw1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_ThrottleIgnoresSpoofedForwardedFor(t *testing.T) {
	limiter := newCountingLimiter(2)
	e := newTestRouter(t, func(d *Dependencies) { d.Limiter = limiter })

	throttled := 0
	for i := 0; i < 5; i++ {
		rec := loginFrom(e, "203.0.113.7:4000", "10.0.0."+strconv.Itoa(i))
		if rec.Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	if throttled != 3 {
		t.Fatalf("expected 3 throttled attempts, got %d", throttled)
	}
	if n := limiter.keys(); n != 1 {
		t.Fatalf("expected a single throttle key, got %d", n)
	}
}

func TestRouter_ThrottleTrustsListedProxy(t *testing.T) {
	_, proxies, err := net.ParseCIDR("203.0.113.0/24")
	if err != nil {
		t.Fatalf("ParseCIDR: %v", err)
	}
	limiter := newCountingLimiter(2)
	e := newTestRouter(t, func(d *Dependencies) {
		d.Limiter = limiter
		d.TrustedProxies = []*net.IPNet{proxies}
	})

	for i := 0; i < 5; i++ {
		if rec := loginFrom(e, "203.0.113.7:4000", "198.51.100."+strconv.Itoa(i)); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d from a distinct client was throttled", i)
		}
	}
	if n := limiter.keys(); n != 5 {
		t.Fatalf("expected one key per forwarded client, got %d", n)
	}
}
