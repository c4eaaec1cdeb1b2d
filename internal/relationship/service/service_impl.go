package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/heraerp/hera/internal/orgcontext"
	"github.com/heraerp/hera/internal/relationship/domain"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:        p.Log.Named("relationship.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		entityRepo: p.EntityRepo,
		guard:      p.Guard,
		auditSvc:   p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRelationshipRequest) (domain.Relationship, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Relationship{}, domain.ErrInvalidOrganization
	}

	relType := strings.TrimSpace(req.Type)
	smartCode := strings.TrimSpace(req.SmartCode)
	payload := guardrail.Payload{
		"organization_id":   orgID.String(),
		"from_entity_id":    strings.TrimSpace(req.FromEntityID),
		"to_entity_id":      strings.TrimSpace(req.ToEntityID),
		"relationship_type": relType,
	}
	if smartCode != "" {
		payload["smart_code"] = smartCode
	}
	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableRelationships,
		Operation: guardrail.OperationCreate,
		Payload:   payload,
	}); err != nil {
		return domain.Relationship{}, err
	}

	fromID, err := parseID(req.FromEntityID, domain.ErrInvalidFromEntity)
	if err != nil {
		return domain.Relationship{}, err
	}
	toID, err := parseID(req.ToEntityID, domain.ErrInvalidToEntity)
	if err != nil {
		return domain.Relationship{}, err
	}
	if fromID == toID {
		return domain.Relationship{}, domain.ErrSelfRelationship
	}
	if relType == "" {
		relType = domain.DefaultType
	}

	direction := strings.ToLower(strings.TrimSpace(req.Direction))
	if direction == "" {
		direction = domain.DirectionForward
	}
	if direction != domain.DirectionForward && direction != domain.DirectionBidirectional {
		return domain.Relationship{}, domain.ErrInvalidDirection
	}

	count, err := s.entityRepo.CountByIDs(ctx, s.db, orgID, []snowflake.ID{fromID, toID})
	if err != nil {
		return domain.Relationship{}, err
	}
	if count != 2 {
		return domain.Relationship{}, domain.ErrEntityNotFound
	}

	strength := decimal.NullDecimal{}
	if req.Strength != nil {
		strength = decimal.NewNullDecimal(decimal.NewFromFloat(*req.Strength))
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	now := time.Now().UTC()
	rel := domain.Relationship{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		FromEntityID: fromID,
		ToEntityID:   toID,
		Type:         relType,
		SmartCode:    smartCode,
		Direction:    direction,
		Strength:     strength,
		IsActive:     true,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &rel); err != nil {
		return domain.Relationship{}, err
	}

	s.emitAudit(ctx, "relationship.create", rel)
	return rel, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Relationship, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Relationship{}, domain.ErrInvalidOrganization
	}

	relID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Relationship{}, err
	}

	rel, err := s.repo.FindByID(ctx, s.db, orgID, relID)
	if err != nil {
		return domain.Relationship{}, err
	}
	if rel == nil {
		return domain.Relationship{}, domain.ErrNotFound
	}
	return *rel, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRelationshipRequest) (domain.ListRelationshipResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListRelationshipResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{
		Type:   strings.TrimSpace(req.Type),
		Active: req.Active,
	}
	var err error
	if filter.FromEntityID, err = parseOptionalID(req.FromEntityID, domain.ErrInvalidFromEntity); err != nil {
		return domain.ListRelationshipResponse{}, err
	}
	if filter.ToEntityID, err = parseOptionalID(req.ToEntityID, domain.ErrInvalidToEntity); err != nil {
		return domain.ListRelationshipResponse{}, err
	}
	if filter.EntityID, err = parseOptionalID(req.EntityID, domain.ErrInvalidID); err != nil {
		return domain.ListRelationshipResponse{}, err
	}

	page, err := option.NormalizePage(req.PageToken, req.PageSize)
	if err != nil {
		return domain.ListRelationshipResponse{}, err
	}
	pageSize := int32(page.PageSize)

	items, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return domain.ListRelationshipResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(rel *domain.Relationship) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        rel.ID.String(),
			CreatedAt: rel.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	rels := make([]domain.Relationship, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rels = append(rels, *item)
	}

	resp := domain.ListRelationshipResponse{Relationships: rels}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Deactivate is idempotent; relationships are never deleted.
func (s *Service) Deactivate(ctx context.Context, id string) (domain.Relationship, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Relationship{}, domain.ErrInvalidOrganization
	}

	relID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Relationship{}, err
	}

	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableRelationships,
		Operation: guardrail.OperationUpdate,
		Payload: guardrail.Payload{
			"organization_id": orgID.String(),
			"id":              relID.String(),
			"is_active":       false,
		},
	}); err != nil {
		return domain.Relationship{}, err
	}

	rel, err := s.repo.FindByID(ctx, s.db, orgID, relID)
	if err != nil {
		return domain.Relationship{}, err
	}
	if rel == nil {
		return domain.Relationship{}, domain.ErrNotFound
	}
	if !rel.IsActive {
		return *rel, nil
	}

	now := time.Now().UTC()
	if err := s.repo.Deactivate(ctx, s.db, orgID, relID, now); err != nil {
		return domain.Relationship{}, err
	}
	rel.IsActive = false
	rel.UpdatedAt = now

	s.emitAudit(ctx, "relationship.deactivate", *rel)
	return *rel, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, rel domain.Relationship) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"from_entity_id":    rel.FromEntityID.String(),
		"to_entity_id":      rel.ToEntityID.String(),
		"relationship_type": rel.Type,
		"is_active":         rel.IsActive,
	}
	targetID := rel.ID.String()
	orgID := rel.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, guardrail.TableRelationships, &targetID, metadata)
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}

func parseOptionalID(value string, invalid error) (snowflake.ID, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return parseID(value, invalid)
}
