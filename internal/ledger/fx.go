package ledger

import (
	"github.com/smallbiznis/contractledger/internal/ledger/domain"
	"github.com/smallbiznis/contractledger/internal/ledger/repository"
	"github.com/smallbiznis/contractledger/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Writer { return svc }),
)
