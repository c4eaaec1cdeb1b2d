package relationship

import (
	"github.com/heraerp/hera/internal/relationship/repository"
	"github.com/heraerp/hera/internal/relationship/service"
	"go.uber.org/fx"
)

var Module = fx.Module("relationship.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
