package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	TransactionType string
	Status          string
	SmartCode       string
	EntityID        snowflake.ID
	DateFrom        *time.Time
	DateTo          *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) error
	InsertLines(ctx context.Context, db *gorm.DB, lines []TransactionLine) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Transaction, error)
	ListLines(ctx context.Context, db *gorm.DB, orgID, transactionID snowflake.ID) ([]TransactionLine, error)
	ListLinesByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]TransactionLine, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Transaction, error)
}
