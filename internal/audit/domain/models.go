package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Audit events are stored as universal transactions of this type.
const (
	TransactionType   = "audit_event"
	TransactionStatus = "posted"
	SmartCode         = "HERA.SYSTEM.AUDIT.EVENT.LOG.V1"
	CodePrefix        = "AUD-"
)

type ActorType string

const (
	ActorTypeSystem  ActorType = "system"
	ActorTypeService ActorType = "service"
	ActorTypeUser    ActorType = "user"
)

// AuditLog is the decoded view of an audit_event transaction.
type AuditLog struct {
	ID         snowflake.ID   `json:"id"`
	OrgID      snowflake.ID   `json:"organization_id"`
	Code       string         `json:"transaction_code"`
	ActorType  string         `json:"actor_type"`
	ActorID    *string        `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   *string        `json:"target_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IPAddress  *string        `json:"ip_address,omitempty"`
	UserAgent  *string        `json:"user_agent,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Row is the universal_transactions row backing an audit event.
type Row struct {
	ID                snowflake.ID      `gorm:"primaryKey"`
	OrgID             snowflake.ID      `gorm:"column:organization_id"`
	TransactionType   string            `gorm:"column:transaction_type"`
	TransactionCode   string            `gorm:"column:transaction_code"`
	TransactionDate   time.Time         `gorm:"column:transaction_date"`
	TransactionStatus string            `gorm:"column:transaction_status"`
	SmartCode         string            `gorm:"column:smart_code"`
	Metadata          datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt         time.Time         `gorm:"column:created_at"`
}

func (Row) TableName() string { return "universal_transactions" }
