// Package domain contains persistence models for the entity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDeleted  = "deleted"
)

// Entity is a generic typed business object: a customer, a service, a GL
// account, a product. The kind lives in EntityType, never in a table name.
type Entity struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"column:organization_id;not null;index:ix_core_entities_org_type,priority:1" json:"organization_id"`
	EntityType string            `gorm:"column:entity_type;type:text;not null;index:ix_core_entities_org_type,priority:2" json:"entity_type"`
	EntityName string            `gorm:"column:entity_name;type:text;not null" json:"entity_name"`
	EntityCode string            `gorm:"column:entity_code;type:text" json:"entity_code,omitempty"`
	SmartCode  string            `gorm:"column:smart_code;type:text;not null" json:"smart_code"`
	Status     string            `gorm:"type:text;not null;default:'active'" json:"status"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Entity) TableName() string { return "core_entities" }
