package server

import (
	"github.com/seaporthq/seaport/internal/events"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(
		NewEngine,
		NewServer,
		func(s *events.Service) InlineProcessor { return s },
	),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)
