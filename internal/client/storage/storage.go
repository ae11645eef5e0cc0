// Package storage defines durable client-side persistence for the session.
package storage

import (
	"context"
	"errors"

	"github.com/hrdesk/hr-auth/internal/client/api"
)

var (
	// ErrSessionNotFound means nothing is persisted.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCorrupt means only part of the pair is present or it cannot
	// be decoded.
	ErrSessionCorrupt = errors.New("session data corrupt")
)

// Session is the persisted token/profile pair.
type Session struct {
	Token string
	User  api.Profile
}

// Storage persists at most one Session. The token and the profile are
// written and removed together.
type Storage interface {
	SaveSession(ctx context.Context, s Session) error
	LoadSession(ctx context.Context) (*Session, error)
	ClearSession(ctx context.Context) error
	Close() error
}
