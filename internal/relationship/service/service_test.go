package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/config"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	entityrepository "github.com/heraerp/hera/internal/entity/repository"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/relationship/domain"
	"github.com/heraerp/hera/internal/relationship/repository"
	"github.com/heraerp/hera/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc      domain.Service
	rec      *testutil.AuditRecorder
	ctx      context.Context
	customer entitydomain.Entity
	stylist  entitydomain.Entity
	outsider entitydomain.Entity
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	rec := testutil.NewAuditRecorder()
	orgID := snowflake.ID(1001)

	return fixture{
		svc: New(Params{
			DB:         conn,
			Log:        zap.NewNop(),
			GenID:      node,
			Repo:       repository.Provide(),
			EntityRepo: entityrepository.Provide(),
			Guard: guard.New(guard.Params{
				Config: config.NewStaticGuardrailConfigHolder(config.DefaultGuardrailConfig()),
				Log:    zap.NewNop(),
			}),
			AuditSvc: rec,
		}),
		rec:      rec,
		ctx:      testutil.OrgContext(orgID),
		customer: testutil.InsertEntity(t, conn, node, orgID, "customer", "Jane", entitydomain.StatusActive),
		stylist:  testutil.InsertEntity(t, conn, node, orgID, "employee", "Rocky", entitydomain.StatusActive),
		outsider: testutil.InsertEntity(t, conn, node, 2002, "customer", "Other", entitydomain.StatusActive),
	}
}

func TestCreateRelationship(t *testing.T) {
	f := newFixture(t)
	strength := 0.8

	rel, err := f.svc.Create(f.ctx, domain.CreateRelationshipRequest{
		FromEntityID: f.customer.ID.String(),
		ToEntityID:   f.stylist.ID.String(),
		Type:         "preferred_stylist",
		SmartCode:    "HERA.SALON.CRM.REL.STYLIST.v1",
		Strength:     &strength,
	})
	require.NoError(t, err)
	assert.Equal(t, "preferred_stylist", rel.Type)
	assert.Equal(t, domain.DirectionForward, rel.Direction)
	assert.True(t, rel.IsActive)
	assert.Equal(t, "0.8", rel.Strength.Decimal.String())
	assert.Equal(t, []string{"relationship.create"}, f.rec.Actions())

	got, err := f.svc.GetByID(f.ctx, rel.ID.String())
	require.NoError(t, err)
	assert.Equal(t, f.customer.ID, got.FromEntityID)
}

func TestCreateRelationshipDefaultsType(t *testing.T) {
	f := newFixture(t)

	rel, err := f.svc.Create(f.ctx, domain.CreateRelationshipRequest{
		FromEntityID: f.customer.ID.String(),
		ToEntityID:   f.stylist.ID.String(),
		Direction:    "Bidirectional",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultType, rel.Type)
	assert.Equal(t, domain.DirectionBidirectional, rel.Direction)
}

func TestCreateRelationshipValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  domain.CreateRelationshipRequest
		want error
	}{
		{
			name: "missing to entity",
			req:  domain.CreateRelationshipRequest{FromEntityID: f.customer.ID.String()},
			want: guard.ErrRejected,
		},
		{
			name: "self loop",
			req:  domain.CreateRelationshipRequest{FromEntityID: f.customer.ID.String(), ToEntityID: f.customer.ID.String()},
			want: domain.ErrSelfRelationship,
		},
		{
			name: "cross tenant",
			req:  domain.CreateRelationshipRequest{FromEntityID: f.customer.ID.String(), ToEntityID: f.outsider.ID.String()},
			want: domain.ErrEntityNotFound,
		},
		{
			name: "bad direction",
			req:  domain.CreateRelationshipRequest{FromEntityID: f.customer.ID.String(), ToEntityID: f.stylist.ID.String(), Direction: "sideways"},
			want: domain.ErrInvalidDirection,
		},
		{
			name: "malformed id",
			req:  domain.CreateRelationshipRequest{FromEntityID: "abc", ToEntityID: f.stylist.ID.String()},
			want: domain.ErrInvalidFromEntity,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.rec.Actions())
}

func TestListRelationships(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(f.ctx, domain.CreateRelationshipRequest{
		FromEntityID: f.customer.ID.String(), ToEntityID: f.stylist.ID.String(), Type: "preferred_stylist",
	})
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, domain.CreateRelationshipRequest{
		FromEntityID: f.stylist.ID.String(), ToEntityID: f.customer.ID.String(), Type: "serves",
	})
	require.NoError(t, err)

	list, err := f.svc.List(f.ctx, domain.ListRelationshipRequest{FromEntityID: f.customer.ID.String()})
	require.NoError(t, err)
	require.Len(t, list.Relationships, 1)
	assert.Equal(t, first.ID, list.Relationships[0].ID)

	list, err = f.svc.List(f.ctx, domain.ListRelationshipRequest{EntityID: f.customer.ID.String()})
	require.NoError(t, err)
	assert.Len(t, list.Relationships, 2)

	list, err = f.svc.List(testutil.OrgContext(2002), domain.ListRelationshipRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Relationships)
}

func TestDeactivateIsIdempotent(t *testing.T) {
	f := newFixture(t)

	rel, err := f.svc.Create(f.ctx, domain.CreateRelationshipRequest{
		FromEntityID: f.customer.ID.String(), ToEntityID: f.stylist.ID.String(),
	})
	require.NoError(t, err)

	first, err := f.svc.Deactivate(f.ctx, rel.ID.String())
	require.NoError(t, err)
	assert.False(t, first.IsActive)

	second, err := f.svc.Deactivate(f.ctx, rel.ID.String())
	require.NoError(t, err)
	assert.False(t, second.IsActive)
	assert.Equal(t, []string{"relationship.create", "relationship.deactivate"}, f.rec.Actions())

	active := true
	list, err := f.svc.List(f.ctx, domain.ListRelationshipRequest{Active: &active})
	require.NoError(t, err)
	assert.Empty(t, list.Relationships)

	_, err = f.svc.Deactivate(f.ctx, "777")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
