package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	"github.com/heraerp/hera/internal/cache"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/heraerp/hera/internal/organization/domain"
	"github.com/heraerp/hera/pkg/db"
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
	Guard    *guard.Guard            `optional:"true"`
	AuditSvc auditdomain.Service     `optional:"true"`
	OrgCache cache.OrganizationCache `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	guard    *guard.Guard
	auditSvc auditdomain.Service
	orgCache cache.OrganizationCache
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("organization.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		guard:    p.Guard,
		auditSvc: p.AuditSvc,
		orgCache: p.OrgCache,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrganizationRequest) (domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	code := slug.Make(strings.TrimSpace(req.Code))
	if code == "" {
		code = slug.Make(name)
	}
	orgType := strings.ToLower(strings.TrimSpace(req.Type))
	if orgType == "" {
		orgType = domain.DefaultType
	}

	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableOrganizations,
		Operation: guardrail.OperationCreate,
		Payload: guardrail.Payload{
			"organization_name": name,
			"organization_code": code,
			"organization_type": orgType,
		},
	}); err != nil {
		return domain.Organization{}, err
	}

	if name == "" {
		return domain.Organization{}, domain.ErrInvalidName
	}
	if code == "" {
		return domain.Organization{}, domain.ErrInvalidCode
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	now := time.Now().UTC()
	org := domain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		Code:      code,
		Type:      orgType,
		Status:    domain.StatusActive,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &org); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Organization{}, domain.ErrDuplicateCode
		}
		return domain.Organization{}, err
	}

	s.log.Info("organization created", zap.String("organization_id", org.ID.String()), zap.String("organization_code", code))
	s.emitAudit(ctx, "organization.create", org, nil)
	return org, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Organization, error) {
	orgID, err := s.parseID(id)
	if err != nil {
		return domain.Organization{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return domain.Organization{}, err
	}
	if item == nil {
		return domain.Organization{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrganizationRequest) (domain.ListOrganizationResponse, error) {
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != "" && !domain.IsValidStatus(status) {
		return domain.ListOrganizationResponse{}, domain.ErrInvalidStatus
	}

	page, err := option.NormalizePage(req.PageToken, req.PageSize)
	if err != nil {
		return domain.ListOrganizationResponse{}, err
	}
	pageSize := int32(page.PageSize)

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Status: status,
		Type:   strings.ToLower(strings.TrimSpace(req.Type)),
	}, page)
	if err != nil {
		return domain.ListOrganizationResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(org *domain.Organization) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        org.ID.String(),
			CreatedAt: org.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	orgs := make([]domain.Organization, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orgs = append(orgs, *item)
	}

	resp := domain.ListOrganizationResponse{Organizations: orgs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.Organization, error) {
	orgID, err := s.parseID(req.ID)
	if err != nil {
		return domain.Organization{}, err
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !domain.IsValidStatus(status) {
		return domain.Organization{}, domain.ErrInvalidStatus
	}

	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableOrganizations,
		Operation: guardrail.OperationUpdate,
		Payload:   guardrail.Payload{"id": orgID.String(), "status": status},
	}); err != nil {
		return domain.Organization{}, err
	}

	affected, err := s.repo.UpdateStatus(ctx, s.db, orgID, status, time.Now().UTC())
	if err != nil {
		return domain.Organization{}, err
	}
	if affected == 0 {
		return domain.Organization{}, domain.ErrNotFound
	}
	if s.orgCache != nil {
		s.orgCache.Invalidate(orgID)
	}

	org, err := s.GetByID(ctx, orgID.String())
	if err != nil {
		return domain.Organization{}, err
	}
	s.emitAudit(ctx, "organization.status_update", org, map[string]any{"status": status})
	return org, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, org domain.Organization, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"organization_code": org.Code,
		"organization_type": org.Type,
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := org.ID.String()
	orgID := org.ID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, guardrail.TableOrganizations, &targetID, metadata)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return id, nil
}
