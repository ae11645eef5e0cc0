package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/hrdesk/hr-auth/internal/client/api"
	"github.com/hrdesk/hr-auth/internal/client/storage"
)

var (
	tokenKey = []byte("token")
	userKey  = []byte("user")
)

// SaveSession writes the token and profile in one transaction.
func (s *Storage) SaveSession(ctx context.Context, sess storage.Session) error {
	data, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}
		if err := bucket.Put(tokenKey, []byte(sess.Token)); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		if err := bucket.Put(userKey, data); err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		return nil
	})
}

// LoadSession returns storage.ErrSessionNotFound when nothing is persisted
// and storage.ErrSessionCorrupt when the pair is incomplete or undecodable.
func (s *Storage) LoadSession(ctx context.Context) (*storage.Session, error) {
	var sess *storage.Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		token := bucket.Get(tokenKey)
		user := bucket.Get(userKey)
		switch {
		case token == nil && user == nil:
			return storage.ErrSessionNotFound
		case token == nil || user == nil || len(token) == 0:
			return storage.ErrSessionCorrupt
		}

		var profile api.Profile
		if err := json.Unmarshal(user, &profile); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrSessionCorrupt, err)
		}
		// bbolt slices are only valid inside the transaction
		sess = &storage.Session{Token: string(token), User: profile}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// ClearSession removes both entries. Clearing an empty store is not an error.
func (s *Storage) ClearSession(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}
		if err := bucket.Delete(tokenKey); err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}
		if err := bucket.Delete(userKey); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}
