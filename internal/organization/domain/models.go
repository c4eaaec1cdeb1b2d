// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Organization statuses. Organizations are never hard-deleted.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusArchived  = "archived"
)

const DefaultType = "business"

// Organization is the tenant root of every other table.
type Organization struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"column:organization_name;type:text;not null" json:"organization_name"`
	Code      string            `gorm:"column:organization_code;type:text;not null;uniqueIndex:ux_core_organizations_code" json:"organization_code"`
	Type      string            `gorm:"column:organization_type;type:text;not null" json:"organization_type"`
	Status    string            `gorm:"type:text;not null;default:'active'" json:"status"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "core_organizations" }

func IsValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusSuspended, StatusArchived:
		return true
	}
	return false
}
