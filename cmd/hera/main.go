package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/audit"
	"github.com/heraerp/hera/internal/cache"
	"github.com/heraerp/hera/internal/clock"
	"github.com/heraerp/hera/internal/config"
	"github.com/heraerp/hera/internal/dynamicdata"
	"github.com/heraerp/hera/internal/entity"
	"github.com/heraerp/hera/internal/export"
	"github.com/heraerp/hera/internal/guard"
	"github.com/heraerp/hera/internal/migration"
	"github.com/heraerp/hera/internal/observability"
	"github.com/heraerp/hera/internal/organization"
	"github.com/heraerp/hera/internal/ratelimit"
	"github.com/heraerp/hera/internal/relationship"
	"github.com/heraerp/hera/internal/server"
	"github.com/heraerp/hera/internal/transaction"
	"github.com/heraerp/hera/internal/universal"
	"github.com/heraerp/hera/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,

		guard.Module,
		audit.Module,
		organization.Module,
		entity.Module,
		dynamicdata.Module,
		relationship.Module,
		transaction.Module,
		universal.Module,
		export.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
