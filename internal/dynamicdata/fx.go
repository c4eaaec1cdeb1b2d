package dynamicdata

import (
	"github.com/heraerp/hera/internal/dynamicdata/repository"
	"github.com/heraerp/hera/internal/dynamicdata/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dynamicdata.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
