package transaction

import (
	"github.com/heraerp/hera/internal/transaction/repository"
	"github.com/heraerp/hera/internal/transaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
