package domain

import (
	"context"
	"errors"

	"github.com/heraerp/hera/pkg/db/pagination"
)

type CreateOrganizationRequest struct {
	Name     string         `json:"organization_name" mapstructure:"organization_name"`
	Code     string         `json:"organization_code" mapstructure:"organization_code"`
	Type     string         `json:"organization_type" mapstructure:"organization_type"`
	Metadata map[string]any `json:"metadata" mapstructure:"metadata"`
}

type ListOrganizationRequest struct {
	PageToken string `mapstructure:"page_token"`
	PageSize  int32  `mapstructure:"page_size"`
	Status    string `mapstructure:"status"`
	Type      string `mapstructure:"organization_type"`
}

type ListOrganizationResponse struct {
	pagination.PageInfo
	Organizations []Organization `json:"organizations"`
}

type UpdateStatusRequest struct {
	ID     string `json:"-" mapstructure:"id"`
	Status string `json:"status" mapstructure:"status"`
}

type Service interface {
	Create(ctx context.Context, req CreateOrganizationRequest) (Organization, error)
	GetByID(ctx context.Context, id string) (Organization, error)
	List(ctx context.Context, req ListOrganizationRequest) (ListOrganizationResponse, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (Organization, error)
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidCode         = errors.New("invalid_code")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrDuplicateCode       = errors.New("duplicate_code")
	ErrNotFound            = errors.New("not_found")
)
