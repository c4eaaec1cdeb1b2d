package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status string
	Type   string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, org *Organization) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Organization, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Organization, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Organization, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, updatedAt time.Time) (int64, error)
}
