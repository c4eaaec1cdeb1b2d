// Package seed bootstraps the root organization and optional demo tenants.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	rootOrgName = "HERA System"
	rootOrgCode = "hera-system"
	rootOrgType = "system"
)

// EnsureRootOrg seeds the system organization used for platform-level records.
func EnsureRootOrg(db *gorm.DB) (organizationdomain.Organization, error) {
	if db == nil {
		return organizationdomain.Organization{}, errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return organizationdomain.Organization{}, err
	}
	return ensureRootOrg(context.Background(), db, node.Generate())
}

// EnsureRootOrgWithID seeds the system organization with a fixed id.
func EnsureRootOrgWithID(db *gorm.DB, id int64) (organizationdomain.Organization, error) {
	if db == nil {
		return organizationdomain.Organization{}, errors.New("seed database handle is required")
	}
	if id == 0 {
		return organizationdomain.Organization{}, errors.New("root organization id is required")
	}
	return ensureRootOrg(context.Background(), db, snowflake.ID(id))
}

func ensureRootOrg(ctx context.Context, db *gorm.DB, id snowflake.ID) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := ensureOrgTx(ctx, tx, id, rootOrgName, rootOrgCode, rootOrgType, nil)
		org = found
		return err
	})
	return org, err
}

// ensureOrgTx returns the organization with code, creating it when missing.
func ensureOrgTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, name, code, orgType string, metadata map[string]any) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("organization_code = ?", code).First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}

	if err := mustConform(organizationTable, createOp, map[string]any{
		"organization_name": name,
		"organization_code": code,
		"organization_type": orgType,
	}); err != nil {
		return org, err
	}

	meta := datatypes.JSONMap{}
	for k, v := range metadata {
		meta[k] = v
	}
	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:        id,
		Name:      name,
		Code:      code,
		Type:      orgType,
		Status:    organizationdomain.StatusActive,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}
