package domain

import (
	"context"
	"errors"
)

// SetFieldRequest writes one field. FieldType is inferred from Value when empty.
type SetFieldRequest struct {
	EntityID  string `json:"-" mapstructure:"entity_id"`
	FieldName string `json:"field_name" mapstructure:"field_name"`
	FieldType string `json:"field_type" mapstructure:"field_type"`
	Value     any    `json:"field_value" mapstructure:"field_value"`
	SmartCode string `json:"smart_code" mapstructure:"smart_code"`
}

type FieldResponse struct {
	DynamicField
	FieldValue any `json:"field_value"`
}

type Service interface {
	Set(ctx context.Context, req SetFieldRequest) (FieldResponse, error)
	Get(ctx context.Context, entityID, fieldName string) (FieldResponse, error)
	List(ctx context.Context, entityID string) ([]FieldResponse, error)
	Delete(ctx context.Context, entityID, fieldName string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidEntity       = errors.New("invalid_entity_id")
	ErrInvalidFieldName    = errors.New("invalid_field_name")
	ErrInvalidFieldType    = errors.New("invalid_field_type")
	ErrInvalidFieldValue   = errors.New("invalid_field_value")
	ErrInvalidSmartCode    = errors.New("invalid_smart_code")
	ErrEntityNotFound      = errors.New("entity_not_found")
	ErrNotFound            = errors.New("not_found")
)
