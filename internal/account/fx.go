package account

import (
	"github.com/seaporthq/seaport/internal/account/repository"
	"github.com/seaporthq/seaport/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account",
	fx.Provide(
		repository.Provide,
		service.Provide,
	),
)
