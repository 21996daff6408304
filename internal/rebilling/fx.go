package rebilling

import (
	"github.com/smallbiznis/aquabill/internal/rebilling/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rebilling.service",
	fx.Provide(service.NewService),
)
