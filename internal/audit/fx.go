package audit

import (
	"github.com/smallbiznis/aquabill/internal/audit/repository"
	"github.com/smallbiznis/aquabill/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
