package audit

import (
	auditrepository "github.com/smallbiznis/contractledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/contractledger/internal/audit/service"
	"go.uber.org/fx"
)

// Module provides the audit trail written by the contract, go-live and
// commission workflows.
var Module = fx.Module("audit",
	fx.Provide(
		auditrepository.Provide,
		auditservice.NewService,
	),
)
