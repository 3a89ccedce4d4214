package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/seaporthq/seaport/internal/observability/logger"
	"github.com/seaporthq/seaport/internal/observability/metrics"
	"github.com/seaporthq/seaport/internal/observability/tracing"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracing,
		provideWorkerMetrics,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *tracing.Provider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracing(lc fx.Lifecycle, cfg Config) (*tracing.Provider, error) {
	provider, err := tracing.New(context.Background(), tracing.Config{
		Enabled:       cfg.OtelEnabled,
		ServiceName:   cfg.ServiceName,
		Environment:   cfg.Environment,
		Version:       cfg.Version,
		Endpoint:      cfg.OtelExporterEndpoint,
		Protocol:      cfg.OtelExporterProtocol,
		SamplingRatio: cfg.OtelSamplingRatio,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}

func provideWorkerMetrics(cfg Config) *metrics.WorkerMetrics {
	return metrics.New(prometheus.DefaultRegisterer, metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
}
