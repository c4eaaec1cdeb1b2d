package repository

import (
	"context"

	"github.com/heraerp/hera/internal/audit/domain"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, row *domain.Row) error {
	if row == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO universal_transactions (
			id, organization_id, transaction_type, transaction_code, transaction_date,
			total_amount, transaction_status, smart_code, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		row.ID,
		row.OrgID,
		row.TransactionType,
		row.TransactionCode,
		row.TransactionDate,
		row.TransactionStatus,
		row.SmartCode,
		row.Metadata,
		row.CreatedAt,
		row.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Row, error) {
	var rows []*domain.Row
	stmt := db.WithContext(ctx).Model(&domain.Row{}).
		Where("organization_id = ? AND transaction_type = ?", filter.OrgID, domain.TransactionType)
	if filter.StartAt != nil {
		stmt = stmt.Where("transaction_date >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("transaction_date <= ?", filter.EndAt.UTC())
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
