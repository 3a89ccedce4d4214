package events

import (
	"github.com/seaporthq/seaport/internal/marketplace"
	"github.com/seaporthq/seaport/internal/queue/worker"
	"go.uber.org/fx"
)

var Module = fx.Module("events",
	fx.Provide(
		NewJournal,
		New,
		func(c *marketplace.Client) MarketplaceAPI { return c },
		func(s *Service) worker.Processor { return s },
	),
)
