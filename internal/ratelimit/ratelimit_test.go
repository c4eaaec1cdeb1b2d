package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/heraerp/hera/internal/clock"
	"github.com/heraerp/hera/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalBucketRefills(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC))
	bucket := NewLocalBucket(fake)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := bucket.Allow(ctx, "org:1", 1, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 2, res.Limit)
	}

	res, err := bucket.Allow(ctx, "org:1", 1, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// other keys keep their own budget
	res, err = bucket.Allow(ctx, "org:2", 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	fake.Advance(time.Second)
	res, err = bucket.Allow(ctx, "org:1", 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocalBucketRejectsBadArguments(t *testing.T) {
	bucket := NewLocalBucket(nil)
	_, err := bucket.Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidBucket)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidBucket)
}

func TestNilTokenBucketIsNotConfigured(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, NewTokenBucket(nil))
}

func TestScriptValueConversion(t *testing.T) {
	assert.Equal(t, int64(1), toInt64(int64(1)))
	assert.Equal(t, int64(1), toInt64("1"))
	assert.Equal(t, 0.5, toFloat64("0.5"))
	assert.Equal(t, float64(3), toFloat64(int64(3)))
	assert.Equal(t, float64(0), toFloat64(nil))
}

func TestNewResultRetryAfter(t *testing.T) {
	res := newResult(false, 0.5, 2, 4)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)
	assert.Equal(t, 0, res.Remaining)

	res = newResult(true, 2.7, 2, 4)
	assert.Zero(t, res.RetryAfter)
	assert.Equal(t, 2, res.Remaining)
}

func TestNewWriteLimiter(t *testing.T) {
	limiter, err := NewWriteLimiter(Params{Config: config.Config{}, Log: zap.NewNop()})
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowOrg(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, err = NewWriteLimiter(Params{
		Config: config.Config{RateLimit: config.RateLimitConfig{Enabled: true}},
		Log:    zap.NewNop(),
	})
	assert.ErrorIs(t, err, ErrInvalidBucket)

	limiter, err = NewWriteLimiter(Params{
		Config: config.Config{RateLimit: config.RateLimitConfig{Enabled: true, WriteRate: 1, WriteBurst: 1}},
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(time.Unix(0, 0)),
	})
	require.NoError(t, err)
	require.True(t, limiter.Enabled())

	res, err = limiter.AllowOrg(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = limiter.AllowOrg(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}
