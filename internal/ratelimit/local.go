package ratelimit

import (
	"context"
	"sync"

	"github.com/heraerp/hera/internal/clock"
	"golang.org/x/time/rate"
)

// LocalBucket keeps one in-process limiter per key. It is used when no Redis
// address is configured, so the budget is per replica.
type LocalBucket struct {
	clock clock.Clock

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewLocalBucket(c clock.Clock) *LocalBucket {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &LocalBucket{clock: c, limiters: map[string]*rate.Limiter{}}
}

func (b *LocalBucket) Allow(_ context.Context, key string, r float64, burst int) (Result, error) {
	if key == "" || r <= 0 || burst <= 0 {
		return Result{}, ErrInvalidBucket
	}

	b.mu.Lock()
	limiter, ok := b.limiters[key]
	if !ok || limiter.Burst() != burst || float64(limiter.Limit()) != r {
		limiter = rate.NewLimiter(rate.Limit(r), burst)
		b.limiters[key] = limiter
	}
	b.mu.Unlock()

	now := b.clock.Now()
	allowed := limiter.AllowN(now, 1)
	return newResult(allowed, limiter.TokensAt(now), r, burst), nil
}
