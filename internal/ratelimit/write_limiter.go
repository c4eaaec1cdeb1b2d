package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/heraerp/hera/internal/clock"
	"github.com/heraerp/hera/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyWriteOrg = "hera:write:org:%s"

// WriteLimiter meters writes per organization.
type WriteLimiter struct {
	bucket Bucket
	rate   float64
	burst  int
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Clock  clock.Clock `optional:"true"`
}

// NewWriteLimiter returns nil when rate limiting is disabled. A Redis address
// selects the shared bucket; otherwise each process keeps its own.
func NewWriteLimiter(p Params) (*WriteLimiter, error) {
	cfg := p.Config.RateLimit
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.WriteRate <= 0 || cfg.WriteBurst <= 0 {
		return nil, fmt.Errorf("%w: write rate %.2f burst %d", ErrInvalidBucket, cfg.WriteRate, cfg.WriteBurst)
	}

	var bucket Bucket
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		bucket = NewTokenBucket(redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}))
		p.Log.Info("write rate limit uses redis", zap.String("addr", addr))
	} else {
		bucket = NewLocalBucket(p.Clock)
		p.Log.Info("write rate limit uses in-process buckets")
	}
	return NewWriteLimiterWithBucket(bucket, cfg.WriteRate, cfg.WriteBurst), nil
}

func NewWriteLimiterWithBucket(bucket Bucket, rate float64, burst int) *WriteLimiter {
	return &WriteLimiter{bucket: bucket, rate: rate, burst: burst}
}

func (l *WriteLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *WriteLimiter) AllowOrg(ctx context.Context, orgID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyWriteOrg, strings.TrimSpace(orgID)), l.rate, l.burst)
}
