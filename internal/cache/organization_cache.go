package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/clock"
	"go.uber.org/fx"
)

const defaultOrganizationTTL = 30 * time.Second

// OrganizationStatus is the cached view used by the org-context middleware.
type OrganizationStatus struct {
	ID     snowflake.ID
	Status string
}

// OrganizationCache remembers organization status for a short time so the
// tenant middleware does not hit the database on every request.
type OrganizationCache interface {
	Get(orgID snowflake.ID) (OrganizationStatus, bool)
	Set(status OrganizationStatus)
	Invalidate(orgID snowflake.ID)
}

type organizationCache struct {
	items Cache[snowflake.ID, OrganizationStatus]
	ttl   time.Duration
}

var Module = fx.Module("cache",
	fx.Provide(func(c clock.Clock) OrganizationCache {
		return NewOrganizationCacheWithClock(c, defaultOrganizationTTL)
	}),
)

func NewOrganizationCache() OrganizationCache {
	return NewOrganizationCacheWithClock(clock.SystemClock{}, defaultOrganizationTTL)
}

func NewOrganizationCacheWithClock(c clock.Clock, ttl time.Duration) OrganizationCache {
	if ttl <= 0 {
		ttl = defaultOrganizationTTL
	}
	return &organizationCache{
		items: NewTTLCacheWithClock[snowflake.ID, OrganizationStatus](c),
		ttl:   ttl,
	}
}

func (c *organizationCache) Get(orgID snowflake.ID) (OrganizationStatus, bool) {
	return c.items.Get(orgID)
}

func (c *organizationCache) Set(status OrganizationStatus) {
	if status.ID == 0 {
		return
	}
	c.items.Set(status.ID, status, c.ttl)
}

func (c *organizationCache) Invalidate(orgID snowflake.ID) {
	c.items.Delete(orgID)
}
