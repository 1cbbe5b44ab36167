package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const minuteWindow = time.Minute

// WindowStore is a fixed-window counter keyed by an opaque string.
type WindowStore interface {
	Bump(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter throttles payment confirmations and referral claims per
// user. A broken store surfaces as an error, not as an allow.
type Limiter struct {
	store            WindowStore
	confirmPerMinute int
	claimPerMinute   int
}

func NewLimiter(store WindowStore, confirmPerMinute, claimPerMinute int) *Limiter {
	if confirmPerMinute < 0 {
		confirmPerMinute = 0
	}
	if claimPerMinute < 0 {
		claimPerMinute = 0
	}

	return &Limiter{
		store:            store,
		confirmPerMinute: confirmPerMinute,
		claimPerMinute:   claimPerMinute,
	}
}

// AllowConfirm reports whether one more payment confirmation may be
// processed for the user this minute. A zero limit disables the check.
func (l *Limiter) AllowConfirm(ctx context.Context, userID int64) (int64, bool, error) {
	return l.allow(ctx, confirmKey(userID), l.confirmPerMinute)
}

// AllowClaim reports whether one more referral claim may be processed
// for the user this minute.
func (l *Limiter) AllowClaim(ctx context.Context, userID int64) (int64, bool, error) {
	return l.allow(ctx, claimKey(userID), l.claimPerMinute)
}

func (l *Limiter) allow(ctx context.Context, key string, limit int) (int64, bool, error) {
	if limit <= 0 {
		return 0, true, nil
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.Bump(ctx, key, minuteWindow)
	if err != nil {
		return 0, false, err
	}
	if count > int64(limit) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

func confirmKey(userID int64) string {
	return "rate:confirm:min:" + strconv.FormatInt(userID, 10)
}

func claimKey(userID int64) string {
	return "rate:claim:min:" + strconv.FormatInt(userID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
