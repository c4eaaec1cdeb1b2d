package domain

import (
	"context"
	"errors"

	"github.com/heraerp/hera/pkg/db/pagination"
)

type CreateRelationshipRequest struct {
	FromEntityID string         `json:"from_entity_id" mapstructure:"from_entity_id"`
	ToEntityID   string         `json:"to_entity_id" mapstructure:"to_entity_id"`
	Type         string         `json:"relationship_type" mapstructure:"relationship_type"`
	SmartCode    string         `json:"smart_code" mapstructure:"smart_code"`
	Direction    string         `json:"relationship_direction" mapstructure:"relationship_direction"`
	Strength     *float64       `json:"relationship_strength" mapstructure:"relationship_strength"`
	Metadata     map[string]any `json:"metadata" mapstructure:"metadata"`
}

type ListRelationshipRequest struct {
	PageToken    string `mapstructure:"page_token"`
	PageSize     int32  `mapstructure:"page_size"`
	FromEntityID string `mapstructure:"from_entity_id"`
	ToEntityID   string `mapstructure:"to_entity_id"`
	EntityID     string `mapstructure:"entity_id"`
	Type         string `mapstructure:"relationship_type"`
	Active       *bool  `mapstructure:"is_active"`
}

type ListRelationshipResponse struct {
	pagination.PageInfo
	Relationships []Relationship `json:"relationships"`
}

type Service interface {
	Create(ctx context.Context, req CreateRelationshipRequest) (Relationship, error)
	GetByID(ctx context.Context, id string) (Relationship, error)
	List(ctx context.Context, req ListRelationshipRequest) (ListRelationshipResponse, error)
	Deactivate(ctx context.Context, id string) (Relationship, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidFromEntity   = errors.New("invalid_from_entity_id")
	ErrInvalidToEntity     = errors.New("invalid_to_entity_id")
	ErrInvalidDirection    = errors.New("invalid_relationship_direction")
	ErrSelfRelationship    = errors.New("self_relationship")
	ErrEntityNotFound      = errors.New("entity_not_found")
	ErrNotFound            = errors.New("not_found")
)
