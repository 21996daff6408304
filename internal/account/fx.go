package account

import (
	"github.com/smallbiznis/aquabill/internal/account/repository"
	"github.com/smallbiznis/aquabill/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
