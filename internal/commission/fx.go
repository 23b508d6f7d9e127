package commission

import (
	"github.com/smallbiznis/contractledger/internal/commission/repository"
	"github.com/smallbiznis/contractledger/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(service.NewSalespersonService),
)
