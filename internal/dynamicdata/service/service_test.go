package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/config"
	"github.com/heraerp/hera/internal/dynamicdata/domain"
	"github.com/heraerp/hera/internal/dynamicdata/repository"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	entityrepository "github.com/heraerp/hera/internal/entity/repository"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const fieldSmartCode = "HERA.SALON.CRM.CUST.DYN.v1"

type fixture struct {
	svc    domain.Service
	rec    *testutil.AuditRecorder
	db     *gorm.DB
	node   *snowflake.Node
	orgID  snowflake.ID
	entity entitydomain.Entity
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	rec := testutil.NewAuditRecorder()
	entityRepo := entityrepository.Provide()

	f := fixture{
		svc: New(Params{
			DB:         conn,
			Log:        zap.NewNop(),
			GenID:      node,
			Repo:       repository.Provide(),
			EntityRepo: entityRepo,
			Guard: guard.New(guard.Params{
				Config: config.NewStaticGuardrailConfigHolder(config.DefaultGuardrailConfig()),
				Log:    zap.NewNop(),
			}),
			AuditSvc: rec,
		}),
		rec:   rec,
		db:    conn,
		node:  node,
		orgID: 1001,
	}
	f.entity = f.insertEntity(t, f.orgID, entitydomain.StatusActive)
	return f
}

func (f fixture) insertEntity(t *testing.T, orgID snowflake.ID, status string) entitydomain.Entity {
	return testutil.InsertEntity(t, f.db, f.node, orgID, "customer", "Jane", status)
}

func (f fixture) ctx() context.Context {
	return testutil.OrgContext(f.orgID)
}

func TestSetInfersFieldType(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name     string
		value    any
		wantType string
	}{
		{"phone", "555-0100", domain.FieldTypeText},
		{"loyalty_points", float64(120), domain.FieldTypeNumber},
		{"vip", true, domain.FieldTypeBoolean},
		{"preferences", map[string]any{"stylist": "Rocky"}, domain.FieldTypeJSON},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := f.svc.Set(f.ctx(), domain.SetFieldRequest{
				EntityID:  f.entity.ID.String(),
				FieldName: tc.name,
				Value:     tc.value,
				SmartCode: fieldSmartCode,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, resp.FieldType)
			assert.NotNil(t, resp.FieldValue)
		})
	}

	fields, err := f.svc.List(f.ctx(), f.entity.ID.String())
	require.NoError(t, err)
	assert.Len(t, fields, len(cases))
}

func TestSetExplicitTypes(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID:  f.entity.ID.String(),
		FieldName: "price",
		FieldType: "number",
		Value:     "45.50",
		SmartCode: fieldSmartCode,
	})
	require.NoError(t, err)
	price, ok := resp.FieldValue.(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("45.5")))

	resp, err = f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID:  f.entity.ID.String(),
		FieldName: "birthday",
		FieldType: "date",
		Value:     "1990-04-12",
		SmartCode: fieldSmartCode,
	})
	require.NoError(t, err)
	birthday, ok := resp.FieldValue.(time.Time)
	require.True(t, ok)
	assert.Equal(t, "1990-04-12", birthday.Format("2006-01-02"))

	_, err = f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID:  f.entity.ID.String(),
		FieldName: "price",
		FieldType: "number",
		Value:     "forty",
		SmartCode: fieldSmartCode,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFieldValue)

	_, err = f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID:  f.entity.ID.String(),
		FieldName: "price",
		FieldType: "money",
		Value:     "1",
		SmartCode: fieldSmartCode,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFieldType)
}

func TestSetReplacesExistingValue(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID: f.entity.ID.String(), FieldName: "phone", Value: "555-0100", SmartCode: fieldSmartCode,
	})
	require.NoError(t, err)

	second, err := f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID: f.entity.ID.String(), FieldName: "phone", Value: float64(5550199), SmartCode: fieldSmartCode,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.FieldTypeNumber, second.FieldType)
	assert.Nil(t, second.ValueText)

	got, err := f.svc.Get(f.ctx(), f.entity.ID.String(), "phone")
	require.NoError(t, err)
	assert.Equal(t, domain.FieldTypeNumber, got.FieldType)

	fields, err := f.svc.List(f.ctx(), f.entity.ID.String())
	require.NoError(t, err)
	assert.Len(t, fields, 1)
	assert.Equal(t, []string{"dynamic_data.set", "dynamic_data.set"}, f.rec.Actions())
}

func TestSetRequiresLiveEntityInTenant(t *testing.T) {
	f := newFixture(t)
	other := f.insertEntity(t, 2002, entitydomain.StatusActive)
	gone := f.insertEntity(t, f.orgID, entitydomain.StatusDeleted)

	for _, id := range []snowflake.ID{other.ID, gone.ID, 424242} {
		_, err := f.svc.Set(f.ctx(), domain.SetFieldRequest{
			EntityID: id.String(), FieldName: "phone", Value: "1", SmartCode: fieldSmartCode,
		})
		assert.ErrorIs(t, err, domain.ErrEntityNotFound, id.String())
	}
}

func TestSetRejectsMissingSmartCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID: f.entity.ID.String(), FieldName: "phone", Value: "1",
	})
	assert.ErrorIs(t, err, guard.ErrRejected)
}

func TestSetUpdateKeepsStoredSmartCode(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID: f.entity.ID.String(), FieldName: "phone", Value: "555-0100", SmartCode: fieldSmartCode,
	})
	require.NoError(t, err)

	second, err := f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID: f.entity.ID.String(), FieldName: "phone", Value: "555-0199",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, fieldSmartCode, second.SmartCode)
	require.NotNil(t, second.ValueText)
	assert.Equal(t, "555-0199", *second.ValueText)
}

func TestDeleteField(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Set(f.ctx(), domain.SetFieldRequest{
		EntityID: f.entity.ID.String(), FieldName: "phone", Value: "555", SmartCode: fieldSmartCode,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx(), f.entity.ID.String(), "phone"))
	assert.ErrorIs(t, f.svc.Delete(f.ctx(), f.entity.ID.String(), "phone"), domain.ErrNotFound)

	_, err = f.svc.Get(f.ctx(), f.entity.ID.String(), "phone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
