package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// WindowRepo is a fixed-window counter used to throttle abuse-prone
// entry points (webhook confirmations, referral claims). Counters are
// advisory only and never participate in ledger transactions.
type WindowRepo struct {
	client *goredis.Client
}

func NewWindowRepo(client *goredis.Client) *WindowRepo {
	return &WindowRepo{client: client}
}

// Bump increments the counter for key, starting a fresh window on the
// first hit. It returns the count inside the current window and the
// time left until the window resets.
func (r *WindowRepo) Bump(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, fmt.Errorf("redis client is nil")
	}
	if key == "" || window <= 0 {
		return 0, 0, fmt.Errorf("invalid window payload")
	}

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("increment window key: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("set window key ttl: %w", err)
		}
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("read window key ttl: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	return count, ttl, nil
}
