package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	"github.com/heraerp/hera/internal/audit/repository"
	"github.com/heraerp/hera/internal/auditcontext"
	"github.com/heraerp/hera/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (auditdomain.Service, *gorm.DB) {
	t.Helper()
	conn := testutil.OpenDB(t)
	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: testutil.MustNode(t),
		Repo:  repository.Provide(),
	})
	return svc, conn
}

func TestAuditLogWritesAuditEventTransaction(t *testing.T) {
	svc, conn := newTestService(t)
	orgID := snowflake.ID(1001)

	ctx := auditcontext.WithActor(testutil.OrgContext(orgID), "service", "pos-terminal")
	ctx = auditcontext.WithRequestID(ctx, "req-1")
	ctx = auditcontext.WithIPAddress(ctx, "10.0.0.1")

	target := "42"
	err := svc.AuditLog(ctx, nil, "", nil, "entity.create", "core_entities", &target, map[string]any{
		"entity_name": "Jane",
		"api_key":     "sk_live_abcdef1234",
		"nested":      map[string]any{"password": "hunter22"},
	})
	require.NoError(t, err)

	var rows []auditdomain.Row
	require.NoError(t, conn.Where("organization_id = ?", orgID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, auditdomain.TransactionType, rows[0].TransactionType)
	assert.Equal(t, auditdomain.SmartCode, rows[0].SmartCode)
	assert.Contains(t, rows[0].TransactionCode, auditdomain.CodePrefix)

	resp, err := svc.List(testutil.OrgContext(orgID), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "entity.create", entry.Action)
	assert.Equal(t, "core_entities", entry.TargetType)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "42", *entry.TargetID)
	assert.Equal(t, "service", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "pos-terminal", *entry.ActorID)
	assert.Equal(t, "req-1", entry.RequestID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)

	assert.Equal(t, "Jane", entry.Metadata["entity_name"])
	assert.Equal(t, "****1234", entry.Metadata["api_key"])
	nested, ok := entry.Metadata["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "****er22", nested["password"])
}

func TestAuditLogDefaults(t *testing.T) {
	svc, conn := newTestService(t)
	orgID := snowflake.ID(1001)

	require.NoError(t, svc.AuditLog(context.Background(), &orgID, "", nil, "organization.create", "", nil, nil))

	resp, err := svc.List(testutil.OrgContext(orgID), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), resp.AuditLogs[0].ActorType)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
	assert.Nil(t, resp.AuditLogs[0].TargetID)

	// no organization anywhere: nothing written
	require.NoError(t, svc.AuditLog(context.Background(), nil, "", nil, "noop", "x", nil, nil))
	var count int64
	require.NoError(t, conn.Model(&auditdomain.Row{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	assert.ErrorIs(t, svc.AuditLog(context.Background(), &orgID, "", nil, " ", "x", nil, nil), auditdomain.ErrInvalidAction)
}

func TestListAuditLogs(t *testing.T) {
	svc, _ := newTestService(t)
	orgID := snowflake.ID(1001)

	for _, action := range []string{"a.one", "a.two", "a.three"} {
		require.NoError(t, svc.AuditLog(context.Background(), &orgID, "", nil, action, "core_entities", nil, nil))
	}

	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidOrganization)

	start := time.Now().Add(time.Hour)
	end := time.Now()
	_, err = svc.List(testutil.OrgContext(orgID), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)

	page, err := svc.List(testutil.OrgContext(orgID), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, page.AuditLogs, 3)
	assert.Equal(t, "a.three", page.AuditLogs[0].Action)

	other, err := svc.List(testutil.OrgContext(2002), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Empty(t, other.AuditLogs)
}
