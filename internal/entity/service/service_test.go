package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/heraerp/hera/internal/config"
	"github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/entity/repository"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/testutil"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const salonSmartCode = "HERA.SALON.CRM.CUST.ENT.v1"

func newTestService(t *testing.T) (domain.Service, *testutil.AuditRecorder) {
	t.Helper()

	rec := testutil.NewAuditRecorder()
	svc := New(Params{
		DB:    testutil.OpenDB(t),
		Log:   zap.NewNop(),
		GenID: testutil.MustNode(t),
		Repo:  repository.Provide(),
		Guard: guard.New(guard.Params{
			Config: config.NewStaticGuardrailConfigHolder(config.DefaultGuardrailConfig()),
			Log:    zap.NewNop(),
		}),
		AuditSvc: rec,
	})
	return svc, rec
}

func TestCreateEntity(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := testutil.OrgContext(1001)

	entity, err := svc.Create(ctx, domain.CreateEntityRequest{
		EntityType: "customer",
		EntityName: "Jane Doe",
		SmartCode:  salonSmartCode,
		Metadata:   map[string]any{"tier": "gold"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1001, entity.OrgID)
	assert.Equal(t, "JANE-DOE", entity.EntityCode)
	assert.Equal(t, domain.StatusActive, entity.Status)
	assert.Equal(t, []string{"entity.create"}, rec.Actions())

	got, err := svc.GetByID(ctx, entity.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.EntityName)
	assert.Equal(t, "gold", got.Metadata["tier"])
}

func TestCreateEntityRequiresOrganization(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateEntityRequest{
		EntityType: "customer",
		EntityName: "Jane",
		SmartCode:  salonSmartCode,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestCreateEntityRejectsMissingFields(t *testing.T) {
	svc, rec := newTestService(t)

	_, err := svc.Create(testutil.OrgContext(1001), domain.CreateEntityRequest{EntityName: "Jane"})
	require.Error(t, err)

	var rejected *guard.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, []string{"entity_type", "smart_code"}, rejected.Result.MissingFields)
	assert.Empty(t, rec.Actions())
}

func TestEntitiesAreTenantScoped(t *testing.T) {
	svc, _ := newTestService(t)
	orgA := testutil.OrgContext(1001)
	orgB := testutil.OrgContext(2002)

	entity, err := svc.Create(orgA, domain.CreateEntityRequest{
		EntityType: "customer", EntityName: "Jane", SmartCode: salonSmartCode,
	})
	require.NoError(t, err)

	_, err = svc.GetByID(orgB, entity.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(orgB, domain.ListEntityRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Entities)
}

func TestListEntitiesFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.OrgContext(1001)

	for _, req := range []domain.CreateEntityRequest{
		{EntityType: "customer", EntityName: "Jane", SmartCode: salonSmartCode},
		{EntityType: "customer", EntityName: "John", SmartCode: salonSmartCode},
		{EntityType: "service", EntityName: "Haircut", SmartCode: "HERA.SALON.SVC.CATALOG.ENT.v1"},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, domain.ListEntityRequest{EntityType: "customer"})
	require.NoError(t, err)
	require.Len(t, list.Entities, 2)
	assert.Equal(t, "John", list.Entities[0].EntityName)

	list, err = svc.List(ctx, domain.ListEntityRequest{PageSize: 1})
	require.NoError(t, err)
	require.Len(t, list.Entities, 1)
	assert.True(t, list.HasMore)

	next, err := svc.List(ctx, domain.ListEntityRequest{PageSize: 5, PageToken: list.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, next.Entities, 2)
}

func TestListEntitiesClampsPageSize(t *testing.T) {
	conn := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	svc := New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
	ctx := testutil.OrgContext(1001)

	total := option.MaxPageSize + 10
	for i := 0; i < total; i++ {
		testutil.InsertEntity(t, conn, node, 1001, "customer", fmt.Sprintf("C%03d", i), domain.StatusActive)
	}

	list, err := svc.List(ctx, domain.ListEntityRequest{PageSize: 300})
	require.NoError(t, err)
	assert.Len(t, list.Entities, option.MaxPageSize)
	assert.True(t, list.HasMore)
	require.NotEmpty(t, list.NextPageToken)

	next, err := svc.List(ctx, domain.ListEntityRequest{PageSize: 300, PageToken: list.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, next.Entities, total-option.MaxPageSize)
	assert.False(t, next.HasMore)
}

func TestListEntitiesRejectsBadPageToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.OrgContext(1001)

	_, err := svc.Create(ctx, domain.CreateEntityRequest{
		EntityType: "customer", EntityName: "Jane", SmartCode: salonSmartCode,
	})
	require.NoError(t, err)

	_, err = svc.List(ctx, domain.ListEntityRequest{PageToken: "%%%garbage"})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestUpdateEntity(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := testutil.OrgContext(1001)

	entity, err := svc.Create(ctx, domain.CreateEntityRequest{
		EntityType: "customer", EntityName: "Jane", SmartCode: salonSmartCode,
		Metadata: map[string]any{"tier": "silver"},
	})
	require.NoError(t, err)

	name := "Jane Smith"
	status := "inactive"
	updated, err := svc.Update(ctx, domain.UpdateEntityRequest{
		ID:         entity.ID.String(),
		EntityName: &name,
		Status:     &status,
		Metadata:   map[string]any{"phone": "555"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", updated.EntityName)
	assert.Equal(t, domain.StatusInactive, updated.Status)
	assert.Equal(t, "silver", updated.Metadata["tier"])
	assert.Equal(t, "555", updated.Metadata["phone"])
	assert.Equal(t, []string{"entity.create", "entity.update"}, rec.Actions())

	deleted := "deleted"
	_, err = svc.Update(ctx, domain.UpdateEntityRequest{ID: entity.ID.String(), Status: &deleted})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.Update(ctx, domain.UpdateEntityRequest{ID: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestDeleteEntityIsSoft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.OrgContext(1001)

	entity, err := svc.Create(ctx, domain.CreateEntityRequest{
		EntityType: "customer", EntityName: "Jane", SmartCode: salonSmartCode,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, entity.ID.String()))

	_, err = svc.GetByID(ctx, entity.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, entity.ID.String()), domain.ErrNotFound)

	list, err := svc.List(ctx, domain.ListEntityRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Entities)

	list, err = svc.List(ctx, domain.ListEntityRequest{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, list.Entities, 1)
	assert.Equal(t, domain.StatusDeleted, list.Entities[0].Status)
}
