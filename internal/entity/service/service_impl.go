package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	"github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/heraerp/hera/internal/orgcontext"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Guard    *guard.Guard        `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	guard    *guard.Guard
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("entity.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		guard:    p.Guard,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateEntityRequest) (domain.Entity, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Entity{}, domain.ErrInvalidOrganization
	}

	entityType := strings.TrimSpace(req.EntityType)
	name := strings.TrimSpace(req.EntityName)
	smartCode := strings.TrimSpace(req.SmartCode)
	code := strings.TrimSpace(req.EntityCode)
	if code == "" && name != "" {
		code = strings.ToUpper(slug.Make(name))
	}

	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableEntities,
		Operation: guardrail.OperationCreate,
		Payload: guardrail.Payload{
			"organization_id": orgID.String(),
			"entity_type":     entityType,
			"entity_name":     name,
			"entity_code":     code,
			"smart_code":      smartCode,
		},
	}); err != nil {
		return domain.Entity{}, err
	}

	if entityType == "" {
		return domain.Entity{}, domain.ErrInvalidType
	}
	if name == "" {
		return domain.Entity{}, domain.ErrInvalidName
	}
	if smartCode == "" {
		return domain.Entity{}, domain.ErrInvalidSmartCode
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = domain.StatusActive
	}
	if !isWritableStatus(status) {
		return domain.Entity{}, domain.ErrInvalidStatus
	}

	now := time.Now().UTC()
	entity := domain.Entity{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		EntityType: entityType,
		EntityName: name,
		EntityCode: code,
		SmartCode:  smartCode,
		Status:     status,
		Metadata:   toJSONMap(req.Metadata),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, &entity); err != nil {
		return domain.Entity{}, err
	}

	s.emitAudit(ctx, "entity.create", entity)
	return entity, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Entity, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Entity{}, domain.ErrInvalidOrganization
	}

	entityID, err := s.parseID(id)
	if err != nil {
		return domain.Entity{}, err
	}

	item, err := s.find(ctx, orgID, entityID)
	if err != nil {
		return domain.Entity{}, err
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListEntityRequest) (domain.ListEntityResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListEntityResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListEntityFilter{
		EntityType:     strings.TrimSpace(req.EntityType),
		Status:         strings.ToLower(strings.TrimSpace(req.Status)),
		SmartCode:      strings.TrimSpace(req.SmartCode),
		Name:           strings.TrimSpace(req.Name),
		IncludeDeleted: req.IncludeDeleted,
	}

	page, err := option.NormalizePage(req.PageToken, req.PageSize)
	if err != nil {
		return domain.ListEntityResponse{}, err
	}
	pageSize := int32(page.PageSize)

	items, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return domain.ListEntityResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(entity *domain.Entity) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        entity.ID.String(),
			CreatedAt: entity.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	entities := make([]domain.Entity, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entities = append(entities, *item)
	}

	resp := domain.ListEntityResponse{Entities: entities}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateEntityRequest) (domain.Entity, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Entity{}, domain.ErrInvalidOrganization
	}

	entityID, err := s.parseID(req.ID)
	if err != nil {
		return domain.Entity{}, err
	}

	payload := guardrail.Payload{
		"organization_id": orgID.String(),
		"id":              entityID.String(),
	}
	if req.EntityName != nil {
		payload["entity_name"] = *req.EntityName
	}
	if req.SmartCode != nil {
		payload["smart_code"] = *req.SmartCode
	}
	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableEntities,
		Operation: guardrail.OperationUpdate,
		Payload:   payload,
	}); err != nil {
		return domain.Entity{}, err
	}

	entity, err := s.find(ctx, orgID, entityID)
	if err != nil {
		return domain.Entity{}, err
	}

	if req.EntityName != nil {
		name := strings.TrimSpace(*req.EntityName)
		if name == "" {
			return domain.Entity{}, domain.ErrInvalidName
		}
		entity.EntityName = name
	}
	if req.EntityCode != nil {
		entity.EntityCode = strings.TrimSpace(*req.EntityCode)
	}
	if req.SmartCode != nil {
		smartCode := strings.TrimSpace(*req.SmartCode)
		if smartCode == "" {
			return domain.Entity{}, domain.ErrInvalidSmartCode
		}
		entity.SmartCode = smartCode
	}
	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if !isWritableStatus(status) {
			return domain.Entity{}, domain.ErrInvalidStatus
		}
		entity.Status = status
	}
	if req.Metadata != nil {
		if entity.Metadata == nil {
			entity.Metadata = datatypes.JSONMap{}
		}
		for key, value := range req.Metadata {
			entity.Metadata[key] = value
		}
	}
	entity.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, entity); err != nil {
		return domain.Entity{}, err
	}

	s.emitAudit(ctx, "entity.update", *entity)
	return *entity, nil
}

// Delete marks the entity deleted; rows are never removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	entityID, err := s.parseID(id)
	if err != nil {
		return err
	}

	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableEntities,
		Operation: guardrail.OperationDelete,
		Payload: guardrail.Payload{
			"organization_id": orgID.String(),
			"id":              entityID.String(),
		},
	}); err != nil {
		return err
	}

	entity, err := s.find(ctx, orgID, entityID)
	if err != nil {
		return err
	}

	entity.Status = domain.StatusDeleted
	entity.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, entity); err != nil {
		return err
	}

	s.emitAudit(ctx, "entity.delete", *entity)
	return nil
}

func (s *Service) find(ctx context.Context, orgID, id snowflake.ID) (*domain.Entity, error) {
	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.Status == domain.StatusDeleted {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, entity domain.Entity) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"entity_type": entity.EntityType,
		"entity_name": entity.EntityName,
		"smart_code":  entity.SmartCode,
		"status":      entity.Status,
	}
	targetID := entity.ID.String()
	orgID := entity.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, guardrail.TableEntities, &targetID, metadata)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func isWritableStatus(status string) bool {
	return status == domain.StatusActive || status == domain.StatusInactive
}

func toJSONMap(values map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for key, value := range values {
		if strings.TrimSpace(key) == "" {
			continue
		}
		out[key] = value
	}
	return out
}
