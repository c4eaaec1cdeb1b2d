package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	FromEntityID snowflake.ID
	ToEntityID   snowflake.ID
	EntityID     snowflake.ID
	Type         string
	Active       *bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rel *Relationship) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Relationship, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Relationship, error)
	Deactivate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, updatedAt time.Time) error
}
