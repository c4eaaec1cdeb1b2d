package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/heraerp/hera/internal/cache"
	"github.com/heraerp/hera/internal/clock"
	"github.com/heraerp/hera/internal/config"
	dynamicdomain "github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/export"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/guardrail"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	"github.com/heraerp/hera/internal/orgcontext"
	"github.com/heraerp/hera/internal/ratelimit"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
	"github.com/heraerp/hera/internal/universal"
	"github.com/heraerp/hera/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testToken = "secret-token"
	activeOrg = snowflake.ID(100)
	frozenOrg = snowflake.ID(200)
)

type fakeOrgService struct {
	orgs     map[snowflake.ID]organizationdomain.Organization
	getCalls int
}

func newFakeOrgService() *fakeOrgService {
	return &fakeOrgService{orgs: map[snowflake.ID]organizationdomain.Organization{
		activeOrg: {ID: activeOrg, Name: "Acme", Code: "acme", Status: organizationdomain.StatusActive},
		frozenOrg: {ID: frozenOrg, Name: "Frozen", Code: "frozen", Status: organizationdomain.StatusSuspended},
	}}
}

func (f *fakeOrgService) Create(ctx context.Context, req organizationdomain.CreateOrganizationRequest) (organizationdomain.Organization, error) {
	if req.Code == "acme" {
		return organizationdomain.Organization{}, organizationdomain.ErrDuplicateCode
	}
	return organizationdomain.Organization{ID: 300, Name: req.Name, Code: req.Code, Status: organizationdomain.StatusActive}, nil
}

func (f *fakeOrgService) GetByID(ctx context.Context, id string) (organizationdomain.Organization, error) {
	f.getCalls++
	orgID, err := snowflake.ParseString(id)
	if err != nil {
		return organizationdomain.Organization{}, organizationdomain.ErrInvalidOrganization
	}
	org, ok := f.orgs[orgID]
	if !ok {
		return organizationdomain.Organization{}, organizationdomain.ErrNotFound
	}
	return org, nil
}

func (f *fakeOrgService) List(ctx context.Context, req organizationdomain.ListOrganizationRequest) (organizationdomain.ListOrganizationResponse, error) {
	return organizationdomain.ListOrganizationResponse{}, nil
}

func (f *fakeOrgService) UpdateStatus(ctx context.Context, req organizationdomain.UpdateStatusRequest) (organizationdomain.Organization, error) {
	return organizationdomain.Organization{Status: req.Status}, nil
}

type fakeEntityService struct {
	lastOrg    snowflake.ID
	lastCreate entitydomain.CreateEntityRequest
}

func (f *fakeEntityService) Create(ctx context.Context, req entitydomain.CreateEntityRequest) (entitydomain.Entity, error) {
	f.lastOrg, _ = orgcontext.OrgIDFromContext(ctx)
	f.lastCreate = req
	if req.EntityType == "" {
		return entitydomain.Entity{}, fmt.Errorf("create entity: %w", entitydomain.ErrInvalidType)
	}
	return entitydomain.Entity{ID: 1, OrgID: f.lastOrg, EntityType: req.EntityType, EntityName: req.EntityName}, nil
}

func (f *fakeEntityService) GetByID(ctx context.Context, id string) (entitydomain.Entity, error) {
	return entitydomain.Entity{}, entitydomain.ErrNotFound
}

func (f *fakeEntityService) List(ctx context.Context, req entitydomain.ListEntityRequest) (entitydomain.ListEntityResponse, error) {
	f.lastOrg, _ = orgcontext.OrgIDFromContext(ctx)
	return entitydomain.ListEntityResponse{Entities: []entitydomain.Entity{}}, nil
}

func (f *fakeEntityService) Update(ctx context.Context, req entitydomain.UpdateEntityRequest) (entitydomain.Entity, error) {
	return entitydomain.Entity{}, nil
}

func (f *fakeEntityService) Delete(ctx context.Context, id string) error {
	return nil
}

type fakeDynamicService struct{ dynamicdomain.Service }
type fakeRelationshipService struct{ relationshipdomain.Service }
type fakeTransactionService struct{ transactiondomain.Service }

type fakeExecutor struct {
	resp  universal.Response
	err   error
	last  universal.Request
	calls int
}

func (f *fakeExecutor) Execute(ctx context.Context, req universal.Request) (universal.Response, error) {
	f.last = req
	f.calls++
	return f.resp, f.err
}

type fakeExporter struct {
	lastOrg    snowflake.ID
	lastFormat string
}

func (f *fakeExporter) Export(ctx context.Context, orgID snowflake.ID, format string) (export.Artifact, error) {
	f.lastOrg = orgID
	f.lastFormat = format
	return export.Artifact{Filename: "acme-20240517.csv", ContentType: "text/csv", Body: []byte("id,entity_name\n")}, nil
}

type testServer struct {
	engine   *gin.Engine
	orgs     *fakeOrgService
	entities *fakeEntityService
	executor *fakeExecutor
	exporter *fakeExporter
}

func newTestServer(t *testing.T, limiter *ratelimit.WriteLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	SetupValidator()

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	ts := &testServer{
		engine:   engine,
		orgs:     newFakeOrgService(),
		entities: &fakeEntityService{},
		executor: &fakeExecutor{},
		exporter: &fakeExporter{},
	}
	NewServer(ServerParams{
		Gin:             engine,
		Cfg:             config.Config{ServiceToken: testToken},
		Log:             zap.NewNop(),
		OrganizationSvc: ts.orgs,
		EntitySvc:       ts.entities,
		DynamicDataSvc:  fakeDynamicService{},
		RelationshipSvc: fakeRelationshipService{},
		TransactionSvc:  fakeTransactionService{},
		Universal:       ts.executor,
		Exporter:        ts.exporter,
		OrgCache:        cache.NewOrganizationCache(),
		Limiter:         limiter,
	})
	return ts
}

func (ts *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func tenant(id snowflake.ID) map[string]string {
	return map[string]string{HeaderOrg: id.String()}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func TestServiceTokenRequired(t *testing.T) {
	ts := newTestServer(t, nil)
	payload := gin.H{"table": "core_entities", "operation": "query", "payload": gin.H{"organization_id": "1"}}

	rec := ts.do(http.MethodPost, "/api/v1/guardrail/validate", payload, map[string]string{"Authorization": ""})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/guardrail/validate", payload, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/guardrail/validate", payload, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateEndpointReturnsFindings(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/guardrail/validate", gin.H{
		"table":     "core_clients",
		"operation": "create",
		"payload":   gin.H{"organization_id": "org1"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data validateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Data.Valid)
	require.NotEmpty(t, body.Data.Errors)
	assert.Equal(t, guardrail.CodeUnknownTable, body.Data.Errors[0].Code)
	require.NotNil(t, body.Data.AutoFix)
	assert.Equal(t, guardrail.TableEntities, body.Data.AutoFix.Table)
	assert.Nil(t, body.Data.FixedRequest)

	rec = ts.do(http.MethodPost, "/api/v1/guardrail/validate", gin.H{
		"table":     "core_relationships",
		"operation": "create",
		"payload":   gin.H{"organization_id": "o", "source_entity_id": "x", "target_entity_id": "y"},
		"auto_fix":  true,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Valid)
	require.NotNil(t, body.Data.FixedRequest)
	assert.Equal(t, "x", body.Data.FixedRequest.Payload["from_entity_id"])
}

func TestValidateEndpointRequiresTable(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/guardrail/validate", gin.H{"operation": "create"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "table", payload.Errors[0].Field)
	assert.Equal(t, "required", payload.Errors[0].Code)
}

func TestUniversalRejectionIs422WithResult(t *testing.T) {
	ts := newTestServer(t, nil)
	req := guardrail.Request{Table: "core_clients", Operation: "create", Payload: guardrail.Payload{}}
	ts.executor.err = &guard.RejectedError{
		Table:     req.Table,
		Operation: req.Operation,
		Mode:      config.GuardrailModeEnforce,
		Result:    guardrail.Validate(req),
	}

	rec := ts.do(http.MethodPost, "/api/v1/universal", gin.H{"table": "core_clients", "operation": "create", "payload": gin.H{}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	payload := decodeError(t, rec)
	assert.Equal(t, "guardrail_rejected", payload.Type)
	require.NotNil(t, payload.Validation)
	assert.False(t, payload.Validation.Valid)
	assert.Contains(t, payload.Validation.MissingFields, "organization_id")
	require.NotEmpty(t, payload.Errors)
	assert.Equal(t, guardrail.CodeUnknownTable, payload.Errors[0].Code)
}

func TestUniversalSuccess(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.executor.resp = universal.Response{Table: "core_entities", Operation: "create", Decision: guard.DecisionAllow}

	rec := ts.do(http.MethodPost, "/api/v1/universal", gin.H{"table": "core_entities", "operation": "create"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"decision":"allow"`)
}

func TestUniversalKeepsLargeNumericIDs(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/universal", gin.H{
		"table":     "core_entities",
		"operation": "query",
		"payload":   gin.H{"organization_id": json.Number("1790000000000000001")},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, json.Number("1790000000000000001"), ts.executor.last.Payload["organization_id"])
}

func TestUniversalRateLimitUsesPayloadTenant(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC))
	limiter := ratelimit.NewWriteLimiterWithBucket(ratelimit.NewLocalBucket(fake), 1, 1)
	ts := newTestServer(t, limiter)
	body := func(orgID string) gin.H {
		return gin.H{"table": "core_entities", "operation": "query", "payload": gin.H{"organization_id": orgID}}
	}

	rec := ts.do(http.MethodPost, "/api/v1/universal", body("100"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = ts.do(http.MethodPost, "/api/v1/universal", body("100"), nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, ts.executor.calls)

	// another tenant has its own bucket
	rec = ts.do(http.MethodPost, "/api/v1/universal", body("300"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, ts.executor.calls)
}

func TestTenantRoutesRequireOrganization(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/v1/entities", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "organization_required", payload.Errors[0].Code)
	assert.Equal(t, "organization_id", payload.Errors[0].Field)

	rec = ts.do(http.MethodGet, "/api/v1/entities", nil, map[string]string{HeaderOrg: "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/entities", nil, tenant(999))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/entities", nil, tenant(frozenOrg))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/entities", nil, tenant(activeOrg))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, activeOrg, ts.entities.lastOrg)
}

func TestOrgContextUsesCache(t *testing.T) {
	ts := newTestServer(t, nil)

	for i := 0; i < 3; i++ {
		rec := ts.do(http.MethodGet, "/api/v1/entities", nil, tenant(activeOrg))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, ts.orgs.getCalls)
}

func TestCreateEntityMapsDomainErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/entities", gin.H{"entity_name": " Acme "}, tenant(activeOrg))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_entity_type", payload.Errors[0].Code)
	assert.Equal(t, "entity_type", payload.Errors[0].Field)
	assert.Equal(t, "Acme", ts.entities.lastCreate.EntityName)

	rec = ts.do(http.MethodPost, "/api/v1/entities", gin.H{"entity_type": "customer", "entity_name": "Acme"}, tenant(activeOrg))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/entities/1", nil, tenant(activeOrg))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrganizationConflict(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/organizations", gin.H{"organization_name": "Acme", "organization_code": "acme"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Type)

	rec = ts.do(http.MethodPatch, "/api/v1/organizations/100/status", gin.H{"status": "gone"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "oneof", decodeError(t, rec).Errors[0].Code)
}

func TestRelationshipIDsMustBeNumeric(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/relationships", gin.H{"from_entity_id": "abc", "to_entity_id": "2"}, tenant(activeOrg))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "from_entity_id", payload.Errors[0].Field)
	assert.Equal(t, "snowflake_id", payload.Errors[0].Code)
}

func TestExportOrganization(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/v1/organizations/100/export", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="acme-20240517.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,entity_name\n", rec.Body.String())
	assert.Equal(t, activeOrg, ts.exporter.lastOrg)
	assert.Equal(t, export.FormatCSV, ts.exporter.lastFormat)

	rec = ts.do(http.MethodGet, "/api/v1/organizations/100/export?format=XLSX", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatXLSX, ts.exporter.lastFormat)

	rec = ts.do(http.MethodGet, "/api/v1/organizations/100/export?format=docx", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "export_format", decodeError(t, rec).Errors[0].Code)

	rec = ts.do(http.MethodGet, "/api/v1/organizations/100/export", nil, map[string]string{HeaderOrg: "200"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWriteRateLimit(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC))
	limiter := ratelimit.NewWriteLimiterWithBucket(ratelimit.NewLocalBucket(fake), 1, 1)
	ts := newTestServer(t, limiter)
	body := gin.H{"entity_type": "customer", "entity_name": "Acme"}

	rec := ts.do(http.MethodPost, "/api/v1/entities", body, tenant(activeOrg))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = ts.do(http.MethodPost, "/api/v1/entities", body, tenant(activeOrg))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// reads are not metered
	rec = ts.do(http.MethodGet, "/api/v1/entities", nil, tenant(activeOrg))
	assert.Equal(t, http.StatusOK, rec.Code)

	fake.Advance(time.Second)
	rec = ts.do(http.MethodPost, "/api/v1/entities", body, tenant(activeOrg))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wrapped validation", fmt.Errorf("update: %w", entitydomain.ErrInvalidName), http.StatusBadRequest, "invalid_entity_name"},
		{"mismatch", universal.ErrOrganizationMismatch, http.StatusBadRequest, "organization_mismatch"},
		{"unsupported", fmt.Errorf("%w: delete core_transactions", universal.ErrUnsupportedOperation), http.StatusBadRequest, "unsupported_operation"},
		{"duplicate line", transactiondomain.ErrDuplicateLine, http.StatusConflict, "conflict"},
		{"missing entity", relationshipdomain.ErrEntityNotFound, http.StatusNotFound, "not_found"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"inactive", ErrOrgInactive, http.StatusForbidden, "forbidden"},
		{"inactive payload tenant", universal.ErrOrganizationInactive, http.StatusForbidden, "forbidden"},
		{"bad page token", pagination.ErrInvalidPageToken, http.StatusBadRequest, "invalid_page_token"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			if len(payload.Errors) > 0 {
				assert.Equal(t, tc.code, payload.Errors[0].Code)
			} else {
				assert.Equal(t, tc.code, payload.Type)
			}
		})
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(entitydomain.ErrInvalidType)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "invalid_entity_type", code)

	errType, _ = classifyErrorForLog(fmt.Errorf("db down"))
	assert.Equal(t, "server_error", errType)
}
