package billing

import (
	"github.com/smallbiznis/aquabill/internal/billing/repository"
	"github.com/smallbiznis/aquabill/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
