package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/dynamicdata/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Upsert replaces the value of an existing (org, entity, field) row in place.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, field *domain.DynamicField) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "organization_id"}, {Name: "entity_id"}, {Name: "field_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"field_type",
				"field_value_text",
				"field_value_number",
				"field_value_boolean",
				"field_value_date",
				"field_value_json",
				"smart_code",
				"updated_at",
			}),
		}).
		Create(field).Error
}

func (r *repo) FindByField(ctx context.Context, db *gorm.DB, orgID, entityID snowflake.ID, fieldName string) (*domain.DynamicField, error) {
	var field domain.DynamicField
	err := db.WithContext(ctx).
		Where("organization_id = ? AND entity_id = ? AND field_name = ?", orgID, entityID, fieldName).
		Limit(1).
		Find(&field).Error
	if err != nil {
		return nil, err
	}
	if field.ID == 0 {
		return nil, nil
	}
	return &field, nil
}

func (r *repo) ListByEntity(ctx context.Context, db *gorm.DB, orgID, entityID snowflake.ID) ([]*domain.DynamicField, error) {
	var fields []*domain.DynamicField
	err := db.WithContext(ctx).
		Where("organization_id = ? AND entity_id = ?", orgID, entityID).
		Order("field_name asc").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repo) ListByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*domain.DynamicField, error) {
	var fields []*domain.DynamicField
	err := db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("entity_id asc, field_name asc").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, entityID snowflake.ID, fieldName string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM core_dynamic_data WHERE organization_id = ? AND entity_id = ? AND field_name = ?`,
		orgID,
		entityID,
		fieldName,
	)
	return result.RowsAffected, result.Error
}
