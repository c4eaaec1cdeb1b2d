package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/organization/domain"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, org *domain.Organization) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO core_organizations (id, organization_name, organization_code, organization_type, status, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Code,
		org.Type,
		org.Status,
		org.Metadata,
		org.CreatedAt,
		org.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT id, organization_name, organization_code, organization_type, status, metadata, created_at, updated_at
		 FROM core_organizations WHERE id = ?`,
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Organization, error) {
	var org domain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT id, organization_name, organization_code, organization_type, status, metadata, created_at, updated_at
		 FROM core_organizations WHERE organization_code = ?`,
		code,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Organization, error) {
	var orgs []*domain.Organization
	stmt := db.WithContext(ctx).Model(&domain.Organization{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if orgType := strings.TrimSpace(filter.Type); orgType != "" {
		stmt = stmt.Where("organization_type = ?", orgType)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, updatedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE core_organizations SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		updatedAt,
		id,
	)
	return result.RowsAffected, result.Error
}
