package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	"github.com/heraerp/hera/internal/audit/masking"
	"github.com/heraerp/hera/internal/auditcontext"
	"github.com/heraerp/hera/internal/observability/metrics"
	"github.com/heraerp/hera/internal/orgcontext"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    auditdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    auditdomain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("audit.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// AuditLog writes one audit_event transaction. Errors are logged and returned;
// callers are expected to ignore them.
func (s *Service) AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	resolvedOrgID := s.resolveOrgID(ctx, orgID)
	if resolvedOrgID == 0 {
		s.log.Debug("skipping audit event without organization", zap.String("action", action))
		return nil
	}

	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = "unknown"
	}
	resolvedActorType, resolvedActorID := s.resolveActor(ctx, strings.TrimSpace(actorType), actorID)

	payload := datatypes.JSONMap{
		"action":      action,
		"target_type": targetType,
		"actor_type":  resolvedActorType,
		"details":     masking.MaskSensitive(metadata),
	}
	if id := normalizePointer(targetID); id != nil {
		payload["target_id"] = *id
	}
	if resolvedActorID != nil {
		payload["actor_id"] = *resolvedActorID
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		payload["ip_address"] = ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		payload["user_agent"] = ua
	}

	now := time.Now().UTC()
	row := auditdomain.Row{
		ID:                s.genID.Generate(),
		OrgID:             resolvedOrgID,
		TransactionType:   auditdomain.TransactionType,
		TransactionCode:   auditdomain.CodePrefix + ulid.Make().String(),
		TransactionDate:   now,
		TransactionStatus: auditdomain.TransactionStatus,
		SmartCode:         auditdomain.SmartCode,
		Metadata:          payload,
		CreatedAt:         now,
	}

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		s.metrics.RecordAuditEvent(ctx, action, "failed")
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	s.metrics.RecordAuditEvent(ctx, action, "recorded")
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidOrganization
	}
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	page, err := option.NormalizePage(req.PageToken, int32(req.PageSize))
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}
	pageSize := page.PageSize

	rows, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		OrgID:   orgID,
		StartAt: req.StartAt,
		EndAt:   req.EndAt,
	}, page)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, int32(pageSize), func(row *auditdomain.Row) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        row.ID.String(),
			CreatedAt: row.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	rows = pagination.Trim(rows, int32(pageSize))

	logs := make([]auditdomain.AuditLog, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		logs = append(logs, decodeRow(row))
	}

	resp := auditdomain.ListAuditLogResponse{AuditLogs: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func decodeRow(row *auditdomain.Row) auditdomain.AuditLog {
	meta := map[string]any(row.Metadata)
	entry := auditdomain.AuditLog{
		ID:         row.ID,
		OrgID:      row.OrgID,
		Code:       row.TransactionCode,
		Action:     stringField(meta, "action"),
		TargetType: stringField(meta, "target_type"),
		ActorType:  stringField(meta, "actor_type"),
		RequestID:  stringField(meta, "request_id"),
		CreatedAt:  row.CreatedAt,
	}
	if details, ok := meta["details"].(map[string]any); ok {
		entry.Metadata = details
	}
	entry.TargetID = optionalField(meta, "target_id")
	entry.ActorID = optionalField(meta, "actor_id")
	entry.IPAddress = optionalField(meta, "ip_address")
	entry.UserAgent = optionalField(meta, "user_agent")
	return entry
}

func stringField(meta map[string]any, key string) string {
	value, _ := meta[key].(string)
	return value
}

func optionalField(meta map[string]any, key string) *string {
	value := stringField(meta, key)
	if value == "" {
		return nil
	}
	return &value
}

func (s *Service) resolveOrgID(ctx context.Context, orgID *snowflake.ID) snowflake.ID {
	if orgID != nil && *orgID != 0 {
		return *orgID
	}
	resolved, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0
	}
	return resolved
}

func (s *Service) resolveActor(ctx context.Context, actorType string, actorID *string) (string, *string) {
	if actorType == "" {
		if ctxType, ctxID := auditcontext.ActorFromContext(ctx); ctxType != "" {
			actorType = ctxType
			if actorID == nil || strings.TrimSpace(*actorID) == "" {
				if ctxID != "" {
					actorID = &ctxID
				}
			}
		}
	}
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}

	return actorType, normalizePointer(actorID)
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
