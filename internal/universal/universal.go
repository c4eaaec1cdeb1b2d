// Package universal executes {table, operation, payload} requests against the
// six tables. Every request is validated once under the guardrail policy and
// then dispatched to the owning table service.
package universal

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/cache"
	dynamicdomain "github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/heraerp/hera/internal/observability/metrics"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	"github.com/heraerp/hera/internal/orgcontext"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedOperation = errors.New("unsupported_operation")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrOrganizationMismatch = errors.New("organization_mismatch")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrOrganizationInactive = errors.New("organization_inactive")
)

type Request struct {
	Table     string            `json:"table" binding:"required"`
	Operation string            `json:"operation" binding:"required"`
	Payload   guardrail.Payload `json:"payload"`
}

// Response carries the service result together with the validator outcome the
// request was executed under.
type Response struct {
	Table      string           `json:"table"`
	Operation  string           `json:"operation"`
	Decision   string           `json:"decision"`
	Fixed      bool             `json:"auto_fixed"`
	Validation guardrail.Result `json:"validation"`
	Data       any              `json:"data,omitempty"`
}

type Params struct {
	fx.In

	Log           *zap.Logger
	Guard         *guard.Guard
	Organizations organizationdomain.Service
	Entities      entitydomain.Service
	DynamicData   dynamicdomain.Service
	Relationships relationshipdomain.Service
	Transactions  transactiondomain.Service
	OrgCache      cache.OrganizationCache `optional:"true"`
	Metrics       *metrics.Metrics        `optional:"true"`
}

type Service struct {
	log           *zap.Logger
	guard         *guard.Guard
	organizations organizationdomain.Service
	entities      entitydomain.Service
	dynamicData   dynamicdomain.Service
	relationships relationshipdomain.Service
	transactions  transactiondomain.Service
	orgCache      cache.OrganizationCache
	metrics       *metrics.Metrics
}

var Module = fx.Module("universal.service",
	fx.Provide(New),
)

func New(p Params) *Service {
	return &Service{
		log:           p.Log.Named("universal.service"),
		guard:         p.Guard,
		organizations: p.Organizations,
		entities:      p.Entities,
		dynamicData:   p.DynamicData,
		relationships: p.Relationships,
		transactions:  p.Transactions,
		orgCache:      p.OrgCache,
		metrics:       p.Metrics,
	}
}

// Execute validates req, applies the guardrail policy and runs the operation.
// When the policy rejects the request the returned Response still carries the
// validation result.
func (s *Service) Execute(ctx context.Context, req Request) (Response, error) {
	table := strings.TrimSpace(req.Table)
	operation := guardrail.NormalizeOperation(req.Operation)
	resp := Response{Table: table, Operation: operation}

	decision, err := s.guard.Check(ctx, guardrail.Request{
		Table:     table,
		Operation: operation,
		Payload:   req.Payload,
	})
	resp.Validation = decision.Result
	resp.Decision = decision.Decision
	resp.Fixed = decision.Fixed
	if err != nil {
		s.metrics.RecordUniversalOperation(ctx, table, operation, "rejected")
		return resp, err
	}

	fixed := decision.Request
	resp.Table = fixed.Table

	ctx, err = s.scopeTenant(ctx, fixed)
	if err != nil {
		s.metrics.RecordUniversalOperation(ctx, resp.Table, operation, "error")
		return resp, err
	}

	data, err := s.dispatch(guard.WithChecked(ctx, fixed.Table), fixed.Table, operation, fixed.Payload)
	if err != nil {
		s.metrics.RecordUniversalOperation(ctx, resp.Table, operation, "error")
		s.log.Debug("universal operation failed",
			zap.String("table", resp.Table),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return resp, err
	}

	s.metrics.RecordUniversalOperation(ctx, resp.Table, operation, "ok")
	resp.Data = data
	return resp, nil
}

// scopeTenant reconciles the organization_id of the payload with the tenant
// already on ctx. A tenant on ctx was verified by the caller and a different
// payload tenant is refused. A payload tenant is adopted only when the
// organization exists and is active.
func (s *Service) scopeTenant(ctx context.Context, req guardrail.Request) (context.Context, error) {
	if req.Table == guardrail.TableOrganizations {
		return ctx, nil
	}

	raw := stringValue(req.Payload, guardrail.FieldOrganizationID)
	current, hasCurrent := orgcontext.OrgIDFromContext(ctx)
	hasCurrent = hasCurrent && current != 0
	if raw == "" {
		if hasCurrent {
			return ctx, nil
		}
		return ctx, ErrInvalidOrganization
	}

	orgID, err := snowflake.ParseString(raw)
	if err != nil || orgID <= 0 {
		return ctx, ErrInvalidOrganization
	}
	if hasCurrent {
		if current != orgID {
			return ctx, ErrOrganizationMismatch
		}
		return ctx, nil
	}

	if err := s.ensureActive(ctx, orgID); err != nil {
		return ctx, err
	}
	return orgcontext.WithOrgID(ctx, int64(orgID)), nil
}

func (s *Service) ensureActive(ctx context.Context, orgID snowflake.ID) error {
	var (
		status cache.OrganizationStatus
		cached bool
	)
	if s.orgCache != nil {
		status, cached = s.orgCache.Get(orgID)
	}
	if !cached {
		org, err := s.organizations.GetByID(ctx, orgID.String())
		if err != nil {
			return err
		}
		status = cache.OrganizationStatus{ID: org.ID, Status: org.Status}
		if s.orgCache != nil {
			s.orgCache.Set(status)
		}
	}
	if status.Status != organizationdomain.StatusActive {
		return ErrOrganizationInactive
	}
	return nil
}
