package payment

import (
	"github.com/smallbiznis/aquabill/internal/payment/repository"
	"github.com/smallbiznis/aquabill/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
