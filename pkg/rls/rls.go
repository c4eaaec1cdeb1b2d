// Package rls scopes a Postgres transaction to one tenant for row level security policies.
package rls

import (
	"strconv"

	"gorm.io/gorm"
)

// WithTenant sets app.current_org_id for the rest of tx. It is a no-op on
// dialects without row level security.
func WithTenant(tx *gorm.DB, tenantID int64) error {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec(
		"SELECT set_config('app.current_org_id', ?, true)",
		strconv.FormatInt(tenantID, 10),
	).Error
}
