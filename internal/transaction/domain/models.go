// Package domain contains persistence models for universal transactions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	CodePrefix    = "TXN-"
	DefaultStatus = "pending"

	// AuditEventType rows are written by the audit service and hidden from
	// List unless asked for by type.
	AuditEventType = "audit_event"
)

// Transaction is the header of any business event: a sale, an appointment,
// a journal entry.
type Transaction struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID      `gorm:"column:organization_id;not null;index:ix_universal_transactions_org_type,priority:1;uniqueIndex:ux_universal_transactions_code,priority:1" json:"organization_id"`
	TransactionType   string            `gorm:"column:transaction_type;type:text;not null;index:ix_universal_transactions_org_type,priority:2" json:"transaction_type"`
	TransactionCode   string            `gorm:"column:transaction_code;type:text;not null;uniqueIndex:ux_universal_transactions_code,priority:2" json:"transaction_code"`
	TransactionDate   time.Time         `gorm:"column:transaction_date;not null" json:"transaction_date"`
	TotalAmount       decimal.Decimal   `gorm:"column:total_amount;type:numeric(20,4);not null;default:0" json:"total_amount"`
	TransactionStatus string            `gorm:"column:transaction_status;type:text;not null" json:"transaction_status"`
	SmartCode         string            `gorm:"column:smart_code;type:text;not null" json:"smart_code"`
	SourceEntityID    *snowflake.ID     `gorm:"column:source_entity_id" json:"source_entity_id,omitempty"`
	TargetEntityID    *snowflake.ID     `gorm:"column:target_entity_id" json:"target_entity_id,omitempty"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "universal_transactions" }

// TransactionLine is one line item of a transaction.
type TransactionLine struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID      `gorm:"column:organization_id;not null;index:ix_universal_transaction_lines_txn,priority:1" json:"organization_id"`
	TransactionID snowflake.ID      `gorm:"column:transaction_id;not null;index:ix_universal_transaction_lines_txn,priority:2;uniqueIndex:ux_universal_transaction_lines_number,priority:1" json:"transaction_id"`
	LineNumber    int               `gorm:"column:line_number;not null;uniqueIndex:ux_universal_transaction_lines_number,priority:2" json:"line_number"`
	LineType      string            `gorm:"column:line_type;type:text" json:"line_type,omitempty"`
	EntityID      *snowflake.ID     `gorm:"column:entity_id" json:"entity_id,omitempty"`
	Quantity      decimal.Decimal   `gorm:"column:quantity;type:numeric(20,4);not null;default:1" json:"quantity"`
	UnitAmount    decimal.Decimal   `gorm:"column:unit_amount;type:numeric(20,4);not null;default:0" json:"unit_amount"`
	LineAmount    decimal.Decimal   `gorm:"column:line_amount;type:numeric(20,4);not null;default:0" json:"line_amount"`
	SmartCode     string            `gorm:"column:smart_code;type:text;not null" json:"smart_code"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (TransactionLine) TableName() string { return "universal_transaction_lines" }

// Reconciliation compares a header total with the sum of its lines.
// Imbalances are reported, never corrected.
type Reconciliation struct {
	TransactionID snowflake.ID    `json:"transaction_id"`
	HeaderTotal   decimal.Decimal `json:"header_total"`
	LineTotal     decimal.Decimal `json:"line_total"`
	Difference    decimal.Decimal `json:"difference"`
	LineCount     int             `json:"line_count"`
	Balanced      bool            `json:"balanced"`
}

// Reconcile sums line amounts against the header total.
func Reconcile(txn Transaction, lines []TransactionLine) Reconciliation {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.LineAmount)
	}
	diff := txn.TotalAmount.Sub(sum)
	return Reconciliation{
		TransactionID: txn.ID,
		HeaderTotal:   txn.TotalAmount,
		LineTotal:     sum,
		Difference:    diff,
		LineCount:     len(lines),
		Balanced:      diff.IsZero(),
	}
}
