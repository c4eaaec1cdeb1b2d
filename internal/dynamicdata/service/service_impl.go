package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	"github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/heraerp/hera/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	EntityRepo entitydomain.Repository
	Guard      *guard.Guard        `optional:"true"`
	AuditSvc   auditdomain.Service `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	entityRepo entitydomain.Repository
	guard      *guard.Guard
	auditSvc   auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("dynamicdata.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		entityRepo: p.EntityRepo,
		guard:      p.Guard,
		auditSvc:   p.AuditSvc,
	}
}

func (s *Service) Set(ctx context.Context, req domain.SetFieldRequest) (domain.FieldResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.FieldResponse{}, domain.ErrInvalidOrganization
	}

	fieldName := strings.TrimSpace(req.FieldName)
	smartCode := strings.TrimSpace(req.SmartCode)
	fieldType := strings.ToLower(strings.TrimSpace(req.FieldType))
	if fieldType == "" {
		fieldType = inferFieldType(req.Value)
	}

	// an existing field is an update and keeps its smart code unless a new one is given
	operation := guardrail.OperationCreate
	if id, err := parseEntityID(req.EntityID); err == nil && fieldName != "" {
		existing, err := s.repo.FindByField(ctx, s.db, orgID, id, fieldName)
		if err != nil {
			return domain.FieldResponse{}, err
		}
		if existing != nil {
			operation = guardrail.OperationUpdate
			if smartCode == "" {
				smartCode = existing.SmartCode
			}
		}
	}

	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableDynamicData,
		Operation: operation,
		Payload: guardrail.Payload{
			"organization_id": orgID.String(),
			"entity_id":       strings.TrimSpace(req.EntityID),
			"field_name":      fieldName,
			"field_type":      fieldType,
			"smart_code":      smartCode,
		},
	}); err != nil {
		return domain.FieldResponse{}, err
	}

	entityID, err := parseEntityID(req.EntityID)
	if err != nil {
		return domain.FieldResponse{}, err
	}
	if fieldName == "" {
		return domain.FieldResponse{}, domain.ErrInvalidFieldName
	}
	if smartCode == "" {
		return domain.FieldResponse{}, domain.ErrInvalidSmartCode
	}
	if fieldType == "" {
		return domain.FieldResponse{}, domain.ErrInvalidFieldType
	}

	if err := s.ensureEntity(ctx, orgID, entityID); err != nil {
		return domain.FieldResponse{}, err
	}

	now := time.Now().UTC()
	field := domain.DynamicField{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		EntityID:  entityID,
		FieldName: fieldName,
		SmartCode: smartCode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := assignValue(&field, fieldType, req.Value); err != nil {
		return domain.FieldResponse{}, err
	}

	if err := s.repo.Upsert(ctx, s.db, &field); err != nil {
		return domain.FieldResponse{}, err
	}

	stored, err := s.repo.FindByField(ctx, s.db, orgID, entityID, fieldName)
	if err != nil {
		return domain.FieldResponse{}, err
	}
	if stored == nil {
		return domain.FieldResponse{}, domain.ErrNotFound
	}

	s.emitAudit(ctx, "dynamic_data.set", *stored)
	return toResponse(*stored), nil
}

func (s *Service) Get(ctx context.Context, entityID, fieldName string) (domain.FieldResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.FieldResponse{}, domain.ErrInvalidOrganization
	}

	id, err := parseEntityID(entityID)
	if err != nil {
		return domain.FieldResponse{}, err
	}
	name := strings.TrimSpace(fieldName)
	if name == "" {
		return domain.FieldResponse{}, domain.ErrInvalidFieldName
	}

	field, err := s.repo.FindByField(ctx, s.db, orgID, id, name)
	if err != nil {
		return domain.FieldResponse{}, err
	}
	if field == nil {
		return domain.FieldResponse{}, domain.ErrNotFound
	}
	return toResponse(*field), nil
}

func (s *Service) List(ctx context.Context, entityID string) ([]domain.FieldResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	id, err := parseEntityID(entityID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEntity(ctx, orgID, id); err != nil {
		return nil, err
	}

	fields, err := s.repo.ListByEntity(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}

	out := make([]domain.FieldResponse, 0, len(fields))
	for _, field := range fields {
		if field == nil {
			continue
		}
		out = append(out, toResponse(*field))
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, entityID, fieldName string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(fieldName)
	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableDynamicData,
		Operation: guardrail.OperationDelete,
		Payload: guardrail.Payload{
			"organization_id": orgID.String(),
			"entity_id":       strings.TrimSpace(entityID),
			"field_name":      name,
		},
	}); err != nil {
		return err
	}

	id, err := parseEntityID(entityID)
	if err != nil {
		return err
	}
	if name == "" {
		return domain.ErrInvalidFieldName
	}

	affected, err := s.repo.Delete(ctx, s.db, orgID, id, name)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.emitAudit(ctx, "dynamic_data.delete", domain.DynamicField{OrgID: orgID, EntityID: id, FieldName: name})
	return nil
}

func (s *Service) ensureEntity(ctx context.Context, orgID, entityID snowflake.ID) error {
	entity, err := s.entityRepo.FindByID(ctx, s.db, orgID, entityID)
	if err != nil {
		return err
	}
	if entity == nil || entity.Status == entitydomain.StatusDeleted {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action string, field domain.DynamicField) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"field_name": field.FieldName,
		"field_type": field.FieldType,
	}
	targetID := field.EntityID.String()
	orgID := field.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, guardrail.TableEntities, &targetID, metadata)
}

func toResponse(field domain.DynamicField) domain.FieldResponse {
	return domain.FieldResponse{DynamicField: field, FieldValue: field.Value()}
}

func parseEntityID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidEntity
	}
	return id, nil
}
