package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entity *domain.Entity) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO core_entities (id, organization_id, entity_type, entity_name, entity_code, smart_code, status, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID,
		entity.OrgID,
		entity.EntityType,
		entity.EntityName,
		entity.EntityCode,
		entity.SmartCode,
		entity.Status,
		entity.Metadata,
		entity.CreatedAt,
		entity.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Entity, error) {
	var entity domain.Entity
	err := db.WithContext(ctx).Raw(
		`SELECT id, organization_id, entity_type, entity_name, entity_code, smart_code, status, metadata, created_at, updated_at
		 FROM core_entities WHERE organization_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&entity).Error
	if err != nil {
		return nil, err
	}
	if entity.ID == 0 {
		return nil, nil
	}
	return &entity, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListEntityFilter, page pagination.Pagination) ([]*domain.Entity, error) {
	var entities []*domain.Entity
	stmt := db.WithContext(ctx).
		Model(&domain.Entity{}).
		Where("organization_id = ?", orgID)
	if filter.EntityType != "" {
		stmt = stmt.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	} else if !filter.IncludeDeleted {
		stmt = stmt.Where("status <> ?", domain.StatusDeleted)
	}
	if filter.SmartCode != "" {
		stmt = stmt.Where("smart_code = ?", filter.SmartCode)
	}
	if name := strings.ToLower(filter.Name); name != "" {
		stmt = stmt.Where("LOWER(entity_name) LIKE ?", "%"+name+"%")
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, entity *domain.Entity) error {
	return db.WithContext(ctx).Exec(
		`UPDATE core_entities
		 SET entity_name = ?, entity_code = ?, smart_code = ?, status = ?, metadata = ?, updated_at = ?
		 WHERE organization_id = ? AND id = ?`,
		entity.EntityName,
		entity.EntityCode,
		entity.SmartCode,
		entity.Status,
		entity.Metadata,
		entity.UpdatedAt,
		entity.OrgID,
		entity.ID,
	).Error
}

func (r *repo) CountByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Entity{}).
		Where("organization_id = ? AND id IN ? AND status <> ?", orgID, ids, domain.StatusDeleted).
		Count(&count).Error
	return count, err
}
