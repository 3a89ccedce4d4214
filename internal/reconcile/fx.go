package reconcile

import (
	"github.com/seaporthq/seaport/internal/marketplace"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile",
	fx.Provide(
		New,
		func(c *marketplace.Client) UsageReporter { return c },
	),
)
