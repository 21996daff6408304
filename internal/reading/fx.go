package reading

import (
	"github.com/smallbiznis/aquabill/internal/reading/repository"
	"github.com/smallbiznis/aquabill/internal/reading/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reading.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
