package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultLimit  = 10
	defaultWindow = time.Minute
	keyPrefix     = "throttle"
)

// Throttle is a fixed-window attempt counter.
// Key format: throttle:<scope>:<window start unix>
type Throttle struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewThrottle(client *redis.Client, limit int, window time.Duration) *Throttle {
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Throttle{client: client, limit: int64(limit), window: window, now: time.Now}
}

// Allow counts one attempt for scope and reports whether it is within limit.
func (t *Throttle) Allow(ctx context.Context, scope string) (bool, error) {
	key := t.key(scope, t.now())

	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("throttle incr: %w", err)
	}

	return incr.Val() <= t.limit, nil
}

func (t *Throttle) key(scope string, now time.Time) string {
	start := now.Truncate(t.window)
	return fmt.Sprintf("%s:%s:%d", keyPrefix, scope, start.Unix())
}
