package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/relationship/domain"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rel *domain.Relationship) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO core_relationships (
			id, organization_id, from_entity_id, to_entity_id, relationship_type, smart_code,
			relationship_direction, relationship_strength, is_active, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rel.ID,
		rel.OrgID,
		rel.FromEntityID,
		rel.ToEntityID,
		rel.Type,
		rel.SmartCode,
		rel.Direction,
		rel.Strength,
		rel.IsActive,
		rel.Metadata,
		rel.CreatedAt,
		rel.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Relationship, error) {
	var rel domain.Relationship
	err := db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&rel).Error
	if err != nil {
		return nil, err
	}
	if rel.ID == 0 {
		return nil, nil
	}
	return &rel, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Relationship, error) {
	var rels []*domain.Relationship
	stmt := db.WithContext(ctx).
		Model(&domain.Relationship{}).
		Where("organization_id = ?", orgID)
	if filter.FromEntityID != 0 {
		stmt = stmt.Where("from_entity_id = ?", filter.FromEntityID)
	}
	if filter.ToEntityID != 0 {
		stmt = stmt.Where("to_entity_id = ?", filter.ToEntityID)
	}
	if filter.EntityID != 0 {
		stmt = stmt.Where("(from_entity_id = ? OR to_entity_id = ?)", filter.EntityID, filter.EntityID)
	}
	if filter.Type != "" {
		stmt = stmt.Where("relationship_type = ?", filter.Type)
	}
	if filter.Active != nil {
		stmt = stmt.Where("is_active = ?", *filter.Active)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Find(&rels).Error; err != nil {
		return nil, err
	}
	return rels, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE core_relationships SET is_active = ?, updated_at = ? WHERE organization_id = ? AND id = ?`,
		false,
		updatedAt,
		orgID,
		id,
	).Error
}
