package domain

import (
	"context"
	"errors"
	"time"

	"github.com/heraerp/hera/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type CreateLineRequest struct {
	LineNumber int              `json:"line_number" mapstructure:"line_number"`
	LineType   string           `json:"line_type" mapstructure:"line_type"`
	EntityID   string           `json:"entity_id" mapstructure:"entity_id"`
	Quantity   *decimal.Decimal `json:"quantity" mapstructure:"quantity"`
	UnitAmount *decimal.Decimal `json:"unit_amount" mapstructure:"unit_amount"`
	LineAmount *decimal.Decimal `json:"line_amount" mapstructure:"line_amount"`
	SmartCode  string           `json:"smart_code" mapstructure:"smart_code"`
	Metadata   map[string]any   `json:"metadata" mapstructure:"metadata"`
}

// CreateTransactionRequest writes a header and its lines atomically. A nil
// TotalAmount defaults to the sum of the line amounts.
type CreateTransactionRequest struct {
	TransactionType string              `json:"transaction_type" mapstructure:"transaction_type"`
	TransactionCode string              `json:"transaction_code" mapstructure:"transaction_code"`
	TransactionDate *time.Time          `json:"transaction_date" mapstructure:"transaction_date"`
	TotalAmount     *decimal.Decimal    `json:"total_amount" mapstructure:"total_amount"`
	Status          string              `json:"transaction_status" mapstructure:"transaction_status"`
	SmartCode       string              `json:"smart_code" mapstructure:"smart_code"`
	SourceEntityID  string              `json:"source_entity_id" mapstructure:"source_entity_id"`
	TargetEntityID  string              `json:"target_entity_id" mapstructure:"target_entity_id"`
	Metadata        map[string]any      `json:"metadata" mapstructure:"metadata"`
	Lines           []CreateLineRequest `json:"lines" mapstructure:"lines"`
}

type TransactionDetail struct {
	Transaction
	Lines          []TransactionLine `json:"lines"`
	Reconciliation Reconciliation    `json:"reconciliation"`
	Warnings       []string          `json:"warnings,omitempty"`
}

type ListTransactionRequest struct {
	PageToken       string     `mapstructure:"page_token"`
	PageSize        int32      `mapstructure:"page_size"`
	TransactionType string     `mapstructure:"transaction_type"`
	Status          string     `mapstructure:"transaction_status"`
	SmartCode       string     `mapstructure:"smart_code"`
	EntityID        string     `mapstructure:"entity_id"`
	DateFrom        *time.Time `mapstructure:"date_from"`
	DateTo          *time.Time `mapstructure:"date_to"`
}

type ListTransactionResponse struct {
	pagination.PageInfo
	Transactions []Transaction `json:"transactions"`
}

type Service interface {
	Create(ctx context.Context, req CreateTransactionRequest) (TransactionDetail, error)
	GetByID(ctx context.Context, id string) (TransactionDetail, error)
	List(ctx context.Context, req ListTransactionRequest) (ListTransactionResponse, error)
	Reconcile(ctx context.Context, id string) (Reconciliation, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidType         = errors.New("invalid_transaction_type")
	ErrInvalidSmartCode    = errors.New("invalid_smart_code")
	ErrInvalidEntity       = errors.New("invalid_entity_id")
	ErrInvalidLineNumber   = errors.New("invalid_line_number")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidDateRange    = errors.New("invalid_date_range")
	ErrDuplicateCode       = errors.New("duplicate_transaction_code")
	ErrDuplicateLine       = errors.New("duplicate_line_number")
	ErrEntityNotFound      = errors.New("entity_not_found")
	ErrNotFound            = errors.New("not_found")
)
