package marketplace

import "go.uber.org/fx"

var Module = fx.Module("marketplace", fx.Provide(NewClient))
