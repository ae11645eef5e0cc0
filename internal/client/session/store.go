// Package session holds the client's authentication state: at most one
// token/profile pair, persisted across restarts and expired on a timer.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hrdesk/hr-auth/internal/client/api"
	"github.com/hrdesk/hr-auth/internal/client/storage"
)

const (
	msgLoginRejected   = "Invalid email or password"
	msgLoginFailed     = "An error occurred during login. Please try again."
	msgRegisterFailed  = "Registration failed"
	msgInvalidSession  = "Received an invalid session token"
	msgSessionNotSaved = "Could not save the session"
)

// Reason says why a session ended.
type Reason string

const (
	ReasonLogout       Reason = "logout"
	ReasonExpired      Reason = "expired"
	ReasonUnauthorized Reason = "unauthorized"
)

// Authenticator is the server API the store drives.
type Authenticator interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Me(ctx context.Context, creds api.Credentials) (*api.Profile, error)
}

// Store is the client session state machine. It is Anonymous until a
// register, login or restore succeeds, and Authenticated until logout,
// expiry or a 401 from the server. Store implements api.Credentials.
type Store struct {
	api     Authenticator
	storage storage.Storage
	clock   Clock
	log     zerolog.Logger

	mu       sync.Mutex
	token    string
	profile  *api.Profile
	errMsg   string
	loading  bool
	timer    Timer
	gen      uint64
	onLogout []func(Reason)
}

type Option func(*Store)

// WithClock replaces the wall clock used by the expiry timer.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New builds a Store and restores any persisted session.
func New(ctx context.Context, client Authenticator, st storage.Storage, opts ...Option) (*Store, error) {
	s := &Store{
		api:     client,
		storage: st,
		clock:   realClock{},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Restore loads the persisted pair. A still-valid token makes the store
// Authenticated with the timer armed for the token's remaining lifetime;
// expired or damaged data is cleared.
func (s *Store) Restore(ctx context.Context) error {
	sess, err := s.storage.LoadSession(ctx)
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		return nil
	case errors.Is(err, storage.ErrSessionCorrupt):
		s.log.Warn().Err(err).Msg("discarding damaged session")
		return s.storage.ClearSession(ctx)
	case err != nil:
		return fmt.Errorf("restore session: %w", err)
	}

	exp, err := tokenExpiry(sess.Token)
	if err != nil || !exp.After(s.clock.Now()) {
		s.log.Info().Msg("persisted session expired, clearing")
		return s.storage.ClearSession(ctx)
	}

	s.mu.Lock()
	s.setAuthenticatedLocked(sess.Token, sess.User, exp)
	s.mu.Unlock()
	return nil
}

// Login authenticates against the server. On failure the store stays
// Anonymous and Err reports the server's message.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.begin()
	resp, err := s.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return s.fail(err, loginMessage(err))
	}
	return s.authenticate(ctx, resp)
}

// Register creates an account and signs it in.
func (s *Store) Register(ctx context.Context, name, email, password string) error {
	s.begin()
	resp, err := s.api.Register(ctx, api.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return s.fail(err, serverMessage(err, msgRegisterFailed))
	}
	return s.authenticate(ctx, resp)
}

// Me fetches the current profile with this store's credentials.
func (s *Store) Me(ctx context.Context) (*api.Profile, error) {
	return s.api.Me(ctx, s)
}

// Logout ends the session.
func (s *Store) Logout() error {
	return s.LogoutContext(context.Background())
}

func (s *Store) LogoutContext(ctx context.Context) error {
	return s.end(ctx, ReasonLogout, 0)
}

// OnLogout registers f to run after every transition to Anonymous.
func (s *Store) OnLogout(f func(Reason)) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, f)
	s.mu.Unlock()
}

// BearerToken implements api.Credentials.
func (s *Store) BearerToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// Unauthorized implements api.Credentials: a 401 ends the session, unless
// the rejected token has already been replaced by a newer login.
func (s *Store) Unauthorized(token string) {
	s.mu.Lock()
	if token == "" || token != s.token {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.mu.Unlock()

	if err := s.end(context.Background(), ReasonUnauthorized, gen); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear session after 401")
	}
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Token returns the current token, or "" when Anonymous.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Profile returns a copy of the current profile, or nil when Anonymous.
func (s *Store) Profile() *api.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Err returns the message of the last failed login or register.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Loading reports whether a login or register call is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) begin() {
	s.mu.Lock()
	s.errMsg = ""
	s.loading = true
	s.mu.Unlock()
}

func (s *Store) fail(err error, msg string) error {
	s.mu.Lock()
	s.errMsg = msg
	s.loading = false
	s.mu.Unlock()
	return err
}

func (s *Store) authenticate(ctx context.Context, resp *api.AuthResponse) error {
	exp, err := tokenExpiry(resp.Token)
	if err != nil {
		return s.fail(err, msgInvalidSession)
	}
	if !exp.After(s.clock.Now()) {
		return s.fail(errors.New("received an already expired token"), msgInvalidSession)
	}

	// Storage and memory change under the same lock so a concurrent logout
	// cannot interleave between them.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err := s.storage.SaveSession(ctx, storage.Session{Token: resp.Token, User: resp.User}); err != nil {
		s.errMsg = msgSessionNotSaved
		return fmt.Errorf("persist session: %w", err)
	}
	s.setAuthenticatedLocked(resp.Token, resp.User, exp)
	return nil
}

// setAuthenticatedLocked disarms any previous timer before arming the new one.
func (s *Store) setAuthenticatedLocked(token string, profile api.Profile, exp time.Time) {
	s.disarmLocked()
	s.token = token
	s.profile = &profile

	gen := s.gen
	s.timer = s.clock.AfterFunc(exp.Sub(s.clock.Now()), func() {
		if err := s.end(context.Background(), ReasonExpired, gen); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear expired session")
		}
	})
	s.log.Debug().Time("expires_at", exp).Msg("session timer armed")
}

func (s *Store) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// end moves to Anonymous. A non-zero gen ties the call to a specific timer
// arming; if the session was replaced since, the call is a no-op.
func (s *Store) end(ctx context.Context, reason Reason, gen uint64) error {
	s.mu.Lock()
	if gen != 0 && gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	wasAuthenticated := s.token != ""
	s.disarmLocked()
	s.token = ""
	s.profile = nil
	err := s.storage.ClearSession(ctx)
	hooks := append([]func(Reason){}, s.onLogout...)
	s.mu.Unlock()

	if wasAuthenticated {
		s.log.Info().Str("reason", string(reason)).Msg("session ended")
		for _, f := range hooks {
			f(reason)
		}
	}
	return err
}

func loginMessage(err error) string {
	if apiErr, ok := api.AsError(err); ok {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return msgLoginRejected
	}
	return msgLoginFailed
}

func serverMessage(err error, fallback string) string {
	if apiErr, ok := api.AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
