// Package domain contains persistence models for entity dynamic data.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Field types. Exactly one typed value column is populated per row.
const (
	FieldTypeText    = "text"
	FieldTypeNumber  = "number"
	FieldTypeBoolean = "boolean"
	FieldTypeDate    = "date"
	FieldTypeJSON    = "json"
)

// DynamicField is one typed attribute of an entity. (organization_id,
// entity_id, field_name) is unique; writes replace the current value.
type DynamicField struct {
	ID           snowflake.ID        `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID        `gorm:"column:organization_id;not null;uniqueIndex:ux_core_dynamic_data_field,priority:1" json:"organization_id"`
	EntityID     snowflake.ID        `gorm:"column:entity_id;not null;uniqueIndex:ux_core_dynamic_data_field,priority:2" json:"entity_id"`
	FieldName    string              `gorm:"column:field_name;type:text;not null;uniqueIndex:ux_core_dynamic_data_field,priority:3" json:"field_name"`
	FieldType    string              `gorm:"column:field_type;type:text;not null" json:"field_type"`
	ValueText    *string             `gorm:"column:field_value_text;type:text" json:"field_value_text,omitempty"`
	ValueNumber  decimal.NullDecimal `gorm:"column:field_value_number;type:numeric(28,8)" json:"field_value_number"`
	ValueBoolean *bool               `gorm:"column:field_value_boolean" json:"field_value_boolean,omitempty"`
	ValueDate    *time.Time          `gorm:"column:field_value_date" json:"field_value_date,omitempty"`
	ValueJSON    datatypes.JSON      `gorm:"column:field_value_json;type:jsonb" json:"field_value_json,omitempty"`
	SmartCode    string              `gorm:"column:smart_code;type:text;not null" json:"smart_code"`
	CreatedAt    time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (DynamicField) TableName() string { return "core_dynamic_data" }

// Value returns the populated typed value, or nil.
func (f DynamicField) Value() any {
	switch f.FieldType {
	case FieldTypeText:
		if f.ValueText != nil {
			return *f.ValueText
		}
	case FieldTypeNumber:
		if f.ValueNumber.Valid {
			return f.ValueNumber.Decimal
		}
	case FieldTypeBoolean:
		if f.ValueBoolean != nil {
			return *f.ValueBoolean
		}
	case FieldTypeDate:
		if f.ValueDate != nil {
			return *f.ValueDate
		}
	case FieldTypeJSON:
		if len(f.ValueJSON) > 0 {
			var out any
			if err := json.Unmarshal(f.ValueJSON, &out); err == nil {
				return out
			}
		}
	}
	return nil
}
