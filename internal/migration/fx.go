package migration

import (
	"github.com/heraerp/hera/internal/config"
	"github.com/heraerp/hera/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if err := Run(conn); err != nil {
			return err
		}
		if cfg.DefaultOrgID != 0 {
			_, err := seed.EnsureRootOrgWithID(conn, cfg.DefaultOrgID)
			return err
		}
		_, err := seed.EnsureRootOrg(conn)
		return err
	}),
)
