package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/heraerp/hera/internal/audit/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/heraerp/hera/internal/orgcontext"
	"github.com/heraerp/hera/internal/transaction/domain"
	"github.com/heraerp/hera/pkg/db"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"github.com/heraerp/hera/pkg/rls"
	"github.com/oklog/ulid/v2"
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
		log:        p.Log.Named("transaction.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		entityRepo: p.EntityRepo,
		guard:      p.Guard,
		auditSvc:   p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTransactionRequest) (domain.TransactionDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.TransactionDetail{}, domain.ErrInvalidOrganization
	}

	txnType := strings.TrimSpace(req.TransactionType)
	smartCode := strings.TrimSpace(req.SmartCode)
	txnID := s.genID.Generate()

	if err := s.guard.CheckOnce(ctx, guardrail.Request{
		Table:     guardrail.TableTransactions,
		Operation: guardrail.OperationCreate,
		Payload: guardrail.Payload{
			"organization_id":  orgID.String(),
			"transaction_type": txnType,
			"smart_code":       smartCode,
		},
	}); err != nil {
		return domain.TransactionDetail{}, err
	}

	if txnType == "" {
		return domain.TransactionDetail{}, domain.ErrInvalidType
	}
	if smartCode == "" {
		return domain.TransactionDetail{}, domain.ErrInvalidSmartCode
	}

	now := time.Now().UTC()
	lines, err := s.buildLines(ctx, orgID, txnID, req.Lines, now)
	if err != nil {
		return domain.TransactionDetail{}, err
	}

	sourceID, err := parseOptionalID(req.SourceEntityID)
	if err != nil {
		return domain.TransactionDetail{}, err
	}
	targetID, err := parseOptionalID(req.TargetEntityID)
	if err != nil {
		return domain.TransactionDetail{}, err
	}
	if err := s.ensureEntities(ctx, orgID, sourceID, targetID, lines); err != nil {
		return domain.TransactionDetail{}, err
	}

	code := strings.TrimSpace(req.TransactionCode)
	if code == "" {
		code = domain.CodePrefix + ulid.Make().String()
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = domain.DefaultStatus
	}
	txnDate := now
	if req.TransactionDate != nil && !req.TransactionDate.IsZero() {
		txnDate = req.TransactionDate.UTC()
	}

	txn := domain.Transaction{
		ID:                txnID,
		OrgID:             orgID,
		TransactionType:   txnType,
		TransactionCode:   code,
		TransactionDate:   txnDate,
		TransactionStatus: status,
		SmartCode:         smartCode,
		SourceEntityID:    sourceID,
		TargetEntityID:    targetID,
		Metadata:          toJSONMap(req.Metadata),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.TotalAmount != nil {
		txn.TotalAmount = *req.TotalAmount
	} else {
		txn.TotalAmount = domain.Reconcile(txn, lines).LineTotal
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, &txn); err != nil {
			return err
		}
		return s.repo.InsertLines(ctx, tx, lines)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.TransactionDetail{}, domain.ErrDuplicateCode
		}
		return domain.TransactionDetail{}, err
	}

	detail := newDetail(txn, lines)
	if !detail.Reconciliation.Balanced {
		detail.Warnings = append(detail.Warnings, fmt.Sprintf(
			"total_amount %s does not equal the sum of line amounts %s",
			detail.Reconciliation.HeaderTotal.String(), detail.Reconciliation.LineTotal.String(),
		))
		s.log.Warn("transaction lines do not reconcile",
			zap.String("transaction_id", txn.ID.String()),
			zap.String("difference", detail.Reconciliation.Difference.String()),
		)
	}

	s.emitAudit(ctx, "transaction.create", txn, len(lines))
	return detail, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.TransactionDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.TransactionDetail{}, domain.ErrInvalidOrganization
	}

	txnID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.TransactionDetail{}, err
	}

	txn, err := s.repo.FindByID(ctx, s.db, orgID, txnID)
	if err != nil {
		return domain.TransactionDetail{}, err
	}
	if txn == nil {
		return domain.TransactionDetail{}, domain.ErrNotFound
	}

	lines, err := s.repo.ListLines(ctx, s.db, orgID, txnID)
	if err != nil {
		return domain.TransactionDetail{}, err
	}
	return newDetail(*txn, lines), nil
}

func (s *Service) List(ctx context.Context, req domain.ListTransactionRequest) (domain.ListTransactionResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListTransactionResponse{}, domain.ErrInvalidOrganization
	}
	if req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo) {
		return domain.ListTransactionResponse{}, domain.ErrInvalidDateRange
	}

	filter := domain.ListFilter{
		TransactionType: strings.TrimSpace(req.TransactionType),
		Status:          strings.TrimSpace(req.Status),
		SmartCode:       strings.TrimSpace(req.SmartCode),
		DateFrom:        req.DateFrom,
		DateTo:          req.DateTo,
	}
	if entityID, err := parseOptionalID(req.EntityID); err != nil {
		return domain.ListTransactionResponse{}, err
	} else if entityID != nil {
		filter.EntityID = *entityID
	}

	page, err := option.NormalizePage(req.PageToken, req.PageSize)
	if err != nil {
		return domain.ListTransactionResponse{}, err
	}
	pageSize := int32(page.PageSize)

	items, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return domain.ListTransactionResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(txn *domain.Transaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        txn.ID.String(),
			CreatedAt: txn.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	txns := make([]domain.Transaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		txns = append(txns, *item)
	}

	resp := domain.ListTransactionResponse{Transactions: txns}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Reconcile(ctx context.Context, id string) (domain.Reconciliation, error) {
	detail, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Reconciliation{}, err
	}
	return detail.Reconciliation, nil
}

func (s *Service) buildLines(ctx context.Context, orgID, txnID snowflake.ID, reqs []domain.CreateLineRequest, now time.Time) ([]domain.TransactionLine, error) {
	lines := make([]domain.TransactionLine, 0, len(reqs))
	seen := make(map[int]struct{}, len(reqs))

	for i, req := range reqs {
		lineNumber := req.LineNumber
		if lineNumber == 0 {
			lineNumber = i + 1
		}
		if lineNumber < 0 {
			return nil, domain.ErrInvalidLineNumber
		}
		if _, dup := seen[lineNumber]; dup {
			return nil, domain.ErrDuplicateLine
		}
		seen[lineNumber] = struct{}{}

		smartCode := strings.TrimSpace(req.SmartCode)
		if err := s.guard.CheckOnce(ctx, guardrail.Request{
			Table:     guardrail.TableTransactionLines,
			Operation: guardrail.OperationCreate,
			Payload: guardrail.Payload{
				"organization_id": orgID.String(),
				"transaction_id":  txnID.String(),
				"line_number":     lineNumber,
				"smart_code":      smartCode,
			},
		}); err != nil {
			return nil, err
		}
		if smartCode == "" {
			return nil, domain.ErrInvalidSmartCode
		}

		entityID, err := parseOptionalID(req.EntityID)
		if err != nil {
			return nil, err
		}

		quantity := decimal.NewFromInt(1)
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		unit := decimal.Zero
		if req.UnitAmount != nil {
			unit = *req.UnitAmount
		}
		amount := quantity.Mul(unit)
		if req.LineAmount != nil {
			amount = *req.LineAmount
		}
		if quantity.IsNegative() {
			return nil, domain.ErrInvalidAmount
		}

		lines = append(lines, domain.TransactionLine{
			ID:            s.genID.Generate(),
			OrgID:         orgID,
			TransactionID: txnID,
			LineNumber:    lineNumber,
			LineType:      strings.TrimSpace(req.LineType),
			EntityID:      entityID,
			Quantity:      quantity,
			UnitAmount:    unit,
			LineAmount:    amount,
			SmartCode:     smartCode,
			Metadata:      toJSONMap(req.Metadata),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return lines, nil
}

// ensureEntities checks every referenced entity belongs to the organization.
func (s *Service) ensureEntities(ctx context.Context, orgID snowflake.ID, source, target *snowflake.ID, lines []domain.TransactionLine) error {
	unique := map[snowflake.ID]struct{}{}
	if source != nil {
		unique[*source] = struct{}{}
	}
	if target != nil {
		unique[*target] = struct{}{}
	}
	for _, line := range lines {
		if line.EntityID != nil {
			unique[*line.EntityID] = struct{}{}
		}
	}
	if len(unique) == 0 {
		return nil
	}

	ids := make([]snowflake.ID, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}
	count, err := s.entityRepo.CountByIDs(ctx, s.db, orgID, ids)
	if err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action string, txn domain.Transaction, lineCount int) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"transaction_type": txn.TransactionType,
		"transaction_code": txn.TransactionCode,
		"total_amount":     txn.TotalAmount.String(),
		"line_count":       lineCount,
	}
	targetID := txn.ID.String()
	orgID := txn.OrgID
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, guardrail.TableTransactions, &targetID, metadata)
}

func newDetail(txn domain.Transaction, lines []domain.TransactionLine) domain.TransactionDetail {
	if lines == nil {
		lines = []domain.TransactionLine{}
	}
	return domain.TransactionDetail{
		Transaction:    txn,
		Lines:          lines,
		Reconciliation: domain.Reconcile(txn, lines),
	}
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}

func parseOptionalID(value string) (*snowflake.ID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := parseID(value, domain.ErrInvalidEntity)
	if err != nil {
		return nil, err
	}
	return &id, nil
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
