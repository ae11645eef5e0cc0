package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hrdesk/hr-auth/internal/api/metrics"
)

// DefaultBcryptCost matches the work factor existing accounts were hashed with.
const DefaultBcryptCost = 10

// Executor runs fn somewhere and waits for it; queue.Pool satisfies it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

type inlineExecutor struct{}

func (inlineExecutor) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

// BcryptHasher hashes and verifies passwords on an Executor.
type BcryptHasher struct {
	cost  int
	exec  Executor
	dummy []byte
}

// NewBcryptHasher builds a hasher. A nil exec runs bcrypt on the calling
// goroutine. The dummy hash lets Verify spend the same time on unknown users.
func NewBcryptHasher(cost int, exec Executor) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if exec == nil {
		exec = inlineExecutor{}
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equaliser"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &BcryptHasher{cost: cost, exec: exec, dummy: dummy}, nil
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	var (
		hash []byte
		err  error
	)
	start := time.Now()
	if execErr := h.exec.Do(ctx, func() {
		hash, err = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	}); execErr != nil {
		return "", fmt.Errorf("hash password: %w", execErr)
	}
	metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	target := []byte(hash)
	if hash == "" {
		target = h.dummy
	}

	var err error
	start := time.Now()
	if execErr := h.exec.Do(ctx, func() {
		err = bcrypt.CompareHashAndPassword(target, []byte(plaintext))
	}); execErr != nil {
		return false, fmt.Errorf("verify password: %w", execErr)
	}
	metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		return hash != "", nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}
