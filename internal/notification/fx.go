package notification

import (
	"github.com/smallbiznis/contractledger/internal/notification/domain"
	"github.com/smallbiznis/contractledger/internal/notification/repository"
	"github.com/smallbiznis/contractledger/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Notifier { return svc }),
)
