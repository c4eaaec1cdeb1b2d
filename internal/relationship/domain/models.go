// Package domain contains persistence models for entity relationships.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	DirectionForward       = "forward"
	DirectionBidirectional = "bidirectional"

	// DefaultType is used when a relationship is created without a type.
	DefaultType = "related_to"
)

// Relationship is a typed directed edge between two entities of the same
// organization. Types are stored exactly as given.
type Relationship struct {
	ID           snowflake.ID        `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID        `gorm:"column:organization_id;not null;index:ix_core_relationships_org_from,priority:1;index:ix_core_relationships_org_to,priority:1" json:"organization_id"`
	FromEntityID snowflake.ID        `gorm:"column:from_entity_id;not null;index:ix_core_relationships_org_from,priority:2" json:"from_entity_id"`
	ToEntityID   snowflake.ID        `gorm:"column:to_entity_id;not null;index:ix_core_relationships_org_to,priority:2" json:"to_entity_id"`
	Type         string              `gorm:"column:relationship_type;type:text;not null" json:"relationship_type"`
	SmartCode    string              `gorm:"column:smart_code;type:text" json:"smart_code,omitempty"`
	Direction    string              `gorm:"column:relationship_direction;type:text" json:"relationship_direction,omitempty"`
	Strength     decimal.NullDecimal `gorm:"column:relationship_strength;type:numeric(10,4)" json:"relationship_strength"`
	IsActive     bool                `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Metadata     datatypes.JSONMap   `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt    time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Relationship) TableName() string { return "core_relationships" }
