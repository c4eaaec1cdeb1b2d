package organization

import (
	"github.com/heraerp/hera/internal/organization/repository"
	"github.com/heraerp/hera/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
