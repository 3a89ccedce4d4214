// Package server exposes the marketplace webhook over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seaporthq/seaport/internal/config"
	"github.com/seaporthq/seaport/internal/events"
	"github.com/seaporthq/seaport/internal/observability/logger"
	queuedomain "github.com/seaporthq/seaport/internal/queue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewEngine builds the gin engine with the shared middleware chain and the
// operational endpoints every deployment gets.
func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Server wires the webhook controller onto the engine.
type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	marketplace events.MarketplaceAPI
	inline      InlineProcessor
	queue       queuedomain.Service
	log         *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Marketplace events.MarketplaceAPI
	Inline      InlineProcessor
	Queue       queuedomain.Service
	Log         *zap.Logger
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		marketplace: p.Marketplace,
		inline:      p.Inline,
		queue:       p.Queue,
		log:         p.Log.Named("server"),
	}
}

// RegisterAPIRoutes mounts the marketplace webhook behind outbound-credential
// basic auth.
func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.requireMarketplaceAuth())

	api.GET("/marketplace/event", s.handleMarketplaceEvent)
	api.POST("/marketplace/event", s.handleMarketplaceEvent)
}

// RunHTTP starts the listener on the configured address and shuts it down
// with the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("server.listen", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Fatal("server.listen.failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
