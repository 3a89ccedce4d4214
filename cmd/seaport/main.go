// Command seaport runs the full billing connector in one process: the
// marketplace webhook, the queue worker and the billing reconciliation loop.
package main

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/seaporthq/seaport/internal/account"
	"github.com/seaporthq/seaport/internal/clock"
	"github.com/seaporthq/seaport/internal/config"
	"github.com/seaporthq/seaport/internal/edition"
	"github.com/seaporthq/seaport/internal/events"
	"github.com/seaporthq/seaport/internal/marketplace"
	"github.com/seaporthq/seaport/internal/migration"
	"github.com/seaporthq/seaport/internal/observability"
	"github.com/seaporthq/seaport/internal/provisioning"
	"github.com/seaporthq/seaport/internal/queue"
	"github.com/seaporthq/seaport/internal/queue/worker"
	"github.com/seaporthq/seaport/internal/reconcile"
	"github.com/seaporthq/seaport/internal/server"
	"github.com/seaporthq/seaport/pkg/db"
	"github.com/seaporthq/seaport/pkg/runlock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		edition.Module,
		marketplace.Module,
		provisioning.Module,
		account.Module,
		queue.Module,
		events.Module,
		reconcile.Module,

		server.Module,
		fx.Invoke(StartWorkers),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// StartWorkers drives both background loops on the configured interval. The
// pidfile locks are shared with the standalone worker binaries, so a cron-run
// instance and the monolith never process the same queue concurrently.
func StartWorkers(lc fx.Lifecycle, cfg config.Config, w *worker.Worker, r *reconcile.Reconciler, log *zap.Logger) {
	log = log.Named("workers")
	c := cron.New()

	c.Schedule(cron.Every(cfg.Worker.RunInterval), cron.FuncJob(func() {
		runLocked(cfg.Worker.LockDir, "seaport-queueworker", log, func(ctx context.Context) error {
			return w.Drain(ctx)
		})
		runLocked(cfg.Worker.LockDir, "seaport-billingcheck", log, func(ctx context.Context) error {
			return r.Drain(ctx)
		})
	}))

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-c.Stop().Done():
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})
}

func runLocked(lockDir, name string, log *zap.Logger, drain func(context.Context) error) {
	lock, err := runlock.Acquire(lockDir, name)
	if errors.Is(err, runlock.ErrAlreadyRunning) {
		log.Info("workers.skip_overlap", zap.String("job", name))
		return
	}
	if err != nil {
		log.Error("workers.lock_failed", zap.String("job", name), zap.Error(err))
		return
	}
	defer lock.Release()

	if err := drain(context.Background()); err != nil {
		log.Error("workers.drain_failed", zap.String("job", name), zap.Error(err))
	}
}
