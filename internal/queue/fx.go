package queue

import (
	"github.com/seaporthq/seaport/internal/queue/repository"
	"github.com/seaporthq/seaport/internal/queue/service"
	"github.com/seaporthq/seaport/internal/queue/worker"
	"go.uber.org/fx"
)

var Module = fx.Module("queue",
	fx.Provide(
		repository.Provide,
		service.Provide,
		worker.New,
	),
)
