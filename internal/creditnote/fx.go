package creditnote

import (
	"github.com/smallbiznis/aquabill/internal/creditnote/repository"
	"github.com/smallbiznis/aquabill/internal/creditnote/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditnote.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
