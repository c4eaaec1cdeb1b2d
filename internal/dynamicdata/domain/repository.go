package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, field *DynamicField) error
	FindByField(ctx context.Context, db *gorm.DB, orgID, entityID snowflake.ID, fieldName string) (*DynamicField, error)
	ListByEntity(ctx context.Context, db *gorm.DB, orgID, entityID snowflake.ID) ([]*DynamicField, error)
	ListByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*DynamicField, error)
	Delete(ctx context.Context, db *gorm.DB, orgID, entityID snowflake.ID, fieldName string) (int64, error)
}
