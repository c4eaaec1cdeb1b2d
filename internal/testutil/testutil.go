// Package testutil holds helpers shared by service tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	entityrepository "github.com/heraerp/hera/internal/entity/repository"
	"github.com/heraerp/hera/internal/migration"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	organizationrepository "github.com/heraerp/hera/internal/organization/repository"
	"github.com/heraerp/hera/internal/orgcontext"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenDB returns an in-memory sqlite database with the six tables created.
// Each test gets its own database named after the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migration.AutoMigrate(conn))
	return conn
}

func MustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// InsertEntity writes an entity row directly, bypassing the entity service.
func InsertEntity(t *testing.T, conn *gorm.DB, node *snowflake.Node, orgID snowflake.ID, entityType, name, status string) entitydomain.Entity {
	t.Helper()
	now := time.Now().UTC()
	entity := entitydomain.Entity{
		ID:         node.Generate(),
		OrgID:      orgID,
		EntityType: entityType,
		EntityName: name,
		EntityCode: name,
		SmartCode:  "HERA.TEST.CORE.ENTITY.ROW.v1",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, entityrepository.Provide().Insert(context.Background(), conn, &entity))
	return entity
}

// InsertOrganization writes a tenant row with a fixed id.
func InsertOrganization(t *testing.T, conn *gorm.DB, orgID snowflake.ID, status string) organizationdomain.Organization {
	t.Helper()
	now := time.Now().UTC()
	org := organizationdomain.Organization{
		ID:        orgID,
		Name:      fmt.Sprintf("Org %d", orgID),
		Code:      fmt.Sprintf("org-%d", orgID),
		Type:      organizationdomain.DefaultType,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, organizationrepository.Provide().Insert(context.Background(), conn, &org))
	return org
}

// OrgContext returns a context scoped to orgID.
func OrgContext(orgID snowflake.ID) context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(orgID))
}

// AuditRecorder is a mock audit service.
type AuditRecorder struct {
	mock.Mock
}

// NewAuditRecorder returns a recorder that accepts every audit call.
func NewAuditRecorder() *AuditRecorder {
	rec := &AuditRecorder{}
	rec.On("AuditLog",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything,
	).Return(nil)
	return rec
}

func (m *AuditRecorder) AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	args := m.Called(ctx, orgID, actorType, actorID, action, targetType, targetID, metadata)
	return args.Error(0)
}

// Actions returns the recorded audit actions in call order.
func (m *AuditRecorder) Actions() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == "AuditLog" {
			out = append(out, call.Arguments.String(4))
		}
	}
	return out
}

func (m *AuditRecorder) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}
