package cache

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCacheWithClock[string, int](fake)

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	fake.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheNonPositiveTTLDeletes(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, time.Minute)
	c.Set("a", 2, 0)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestOrganizationCache(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewOrganizationCacheWithClock(fake, 30*time.Second)

	c.Set(OrganizationStatus{ID: 0, Status: "active"})
	_, ok := c.Get(0)
	assert.False(t, ok)

	c.Set(OrganizationStatus{ID: snowflake.ID(5), Status: "active"})
	got, ok := c.Get(5)
	assert.True(t, ok)
	assert.Equal(t, "active", got.Status)

	fake.Advance(29 * time.Second)
	_, ok = c.Get(5)
	assert.True(t, ok)

	c.Invalidate(5)
	_, ok = c.Get(5)
	assert.False(t, ok)
}
