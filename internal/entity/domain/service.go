package domain

import (
	"context"
	"errors"

	"github.com/heraerp/hera/pkg/db/pagination"
)

type CreateEntityRequest struct {
	EntityType string         `json:"entity_type" mapstructure:"entity_type"`
	EntityName string         `json:"entity_name" mapstructure:"entity_name"`
	EntityCode string         `json:"entity_code" mapstructure:"entity_code"`
	SmartCode  string         `json:"smart_code" mapstructure:"smart_code"`
	Status     string         `json:"status" mapstructure:"status"`
	Metadata   map[string]any `json:"metadata" mapstructure:"metadata"`
}

// UpdateEntityRequest applies only the non-nil fields.
type UpdateEntityRequest struct {
	ID         string         `json:"-" mapstructure:"id"`
	EntityName *string        `json:"entity_name" mapstructure:"entity_name"`
	EntityCode *string        `json:"entity_code" mapstructure:"entity_code"`
	SmartCode  *string        `json:"smart_code" mapstructure:"smart_code"`
	Status     *string        `json:"status" mapstructure:"status"`
	Metadata   map[string]any `json:"metadata" mapstructure:"metadata"`
}

type ListEntityRequest struct {
	PageToken      string `mapstructure:"page_token"`
	PageSize       int32  `mapstructure:"page_size"`
	EntityType     string `mapstructure:"entity_type"`
	Status         string `mapstructure:"status"`
	SmartCode      string `mapstructure:"smart_code"`
	Name           string `mapstructure:"entity_name"`
	IncludeDeleted bool   `mapstructure:"include_deleted"`
}

type ListEntityResponse struct {
	pagination.PageInfo
	Entities []Entity `json:"entities"`
}

type Service interface {
	Create(ctx context.Context, req CreateEntityRequest) (Entity, error)
	GetByID(ctx context.Context, id string) (Entity, error)
	List(ctx context.Context, req ListEntityRequest) (ListEntityResponse, error)
	Update(ctx context.Context, req UpdateEntityRequest) (Entity, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidType         = errors.New("invalid_entity_type")
	ErrInvalidName         = errors.New("invalid_entity_name")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidSmartCode    = errors.New("invalid_smart_code")
	ErrNotFound            = errors.New("not_found")
)
