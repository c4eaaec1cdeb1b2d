package entity

import (
	"github.com/heraerp/hera/internal/entity/repository"
	"github.com/heraerp/hera/internal/entity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
