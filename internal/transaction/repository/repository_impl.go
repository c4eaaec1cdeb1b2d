package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/transaction/domain"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO universal_transactions (
			id, organization_id, transaction_type, transaction_code, transaction_date, total_amount,
			transaction_status, smart_code, source_entity_id, target_entity_id, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.OrgID,
		txn.TransactionType,
		txn.TransactionCode,
		txn.TransactionDate,
		txn.TotalAmount,
		txn.TransactionStatus,
		txn.SmartCode,
		txn.SourceEntityID,
		txn.TargetEntityID,
		txn.Metadata,
		txn.CreatedAt,
		txn.UpdatedAt,
	).Error
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []domain.TransactionLine) error {
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&txn).Error
	if err != nil {
		return nil, err
	}
	if txn.ID == 0 {
		return nil, nil
	}
	return &txn, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, orgID, transactionID snowflake.ID) ([]domain.TransactionLine, error) {
	var lines []domain.TransactionLine
	err := db.WithContext(ctx).
		Where("organization_id = ? AND transaction_id = ?", orgID, transactionID).
		Order("line_number asc").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) ListLinesByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.TransactionLine, error) {
	var lines []domain.TransactionLine
	err := db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("transaction_id asc, line_number asc").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	stmt := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("organization_id = ?", orgID)
	if filter.TransactionType != "" {
		stmt = stmt.Where("transaction_type = ?", filter.TransactionType)
	} else {
		stmt = stmt.Where("transaction_type <> ?", domain.AuditEventType)
	}
	if filter.Status != "" {
		stmt = stmt.Where("transaction_status = ?", filter.Status)
	}
	if filter.SmartCode != "" {
		stmt = stmt.Where("smart_code = ?", filter.SmartCode)
	}
	if filter.EntityID != 0 {
		stmt = stmt.Where("(source_entity_id = ? OR target_entity_id = ?)", filter.EntityID, filter.EntityID)
	}
	if filter.DateFrom != nil {
		stmt = stmt.Where("transaction_date >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		stmt = stmt.Where("transaction_date <= ?", filter.DateTo.UTC())
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
