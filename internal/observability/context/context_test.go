package context

import (
	"context"
	"testing"

	"github.com/heraerp/hera/internal/auditcontext"
	"github.com/heraerp/hera/internal/orgcontext"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, OrgIDFromContext(ctx))

	ctx = WithRequestID(ctx, " req-1 ")
	ctx = orgcontext.WithOrgID(ctx, 99)
	ctx = auditcontext.WithActor(ctx, "service", "heractl")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "99", OrgIDFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "service", actorType)
	assert.Equal(t, "heractl", actorID)
}
