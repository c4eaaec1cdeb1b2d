package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListEntityFilter struct {
	EntityType     string
	Status         string
	SmartCode      string
	Name           string
	IncludeDeleted bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entity *Entity) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Entity, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListEntityFilter, page pagination.Pagination) ([]*Entity, error)
	Update(ctx context.Context, db *gorm.DB, entity *Entity) error
	CountByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error)
}
