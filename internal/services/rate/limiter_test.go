package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/redis"
)

func TestLimiterBlocksConfirmsOverMinuteLimit(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewWindowRepo(client), 3, 100)

	ctx := context.Background()
	userID := int64(42)

	for i := 0; i < 3; i++ {
		retryAfter, allowed, err := limiter.AllowConfirm(ctx, userID)
		if err != nil {
			t.Fatalf("allow confirm #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on confirm #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowConfirm(ctx, userID)
	if err != nil {
		t.Fatalf("allow confirm #4: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on fourth confirm in minute window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	mr.FastForward(61 * time.Second)

	retryAfter, allowed, err = limiter.AllowConfirm(ctx, userID)
	if err != nil {
		t.Fatalf("allow confirm after window reset: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterTracksClaimsSeparatelyFromConfirms(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewWindowRepo(client), 1, 1)

	ctx := context.Background()
	userID := int64(77)

	if _, allowed, err := limiter.AllowConfirm(ctx, userID); err != nil || !allowed {
		t.Fatalf("first confirm should pass: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.AllowClaim(ctx, userID); err != nil || !allowed {
		t.Fatalf("first claim should pass despite confirm counter: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.AllowClaim(ctx, userID); err != nil || allowed {
		t.Fatalf("second claim should block: allowed=%v err=%v", allowed, err)
	}
}

func TestLimiterZeroLimitDisablesCheck(t *testing.T) {
	limiter := NewLimiter(nil, 0, 0)

	if _, allowed, err := limiter.AllowConfirm(context.Background(), 1); err != nil || !allowed {
		t.Fatalf("zero limit should always allow: allowed=%v err=%v", allowed, err)
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
