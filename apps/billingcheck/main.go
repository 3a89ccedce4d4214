// Command billingcheck runs one billing reconciliation pass and exits.
// Exit codes: 0 on success, 1 on a halted run, 2 when another instance
// already holds the pidfile.
package main

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/seaporthq/seaport/internal/account"
	"github.com/seaporthq/seaport/internal/clock"
	"github.com/seaporthq/seaport/internal/config"
	"github.com/seaporthq/seaport/internal/marketplace"
	"github.com/seaporthq/seaport/internal/migration"
	"github.com/seaporthq/seaport/internal/observability"
	"github.com/seaporthq/seaport/internal/provisioning"
	"github.com/seaporthq/seaport/internal/reconcile"
	"github.com/seaporthq/seaport/pkg/db"
	"github.com/seaporthq/seaport/pkg/runlock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const lockName = "seaport-billingcheck"

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		marketplace.Module,
		provisioning.Module,
		account.Module,
		reconcile.Module,

		fx.Invoke(RunOnce),
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

func RunOnce(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, r *reconcile.Reconciler, log *zap.Logger) {
	log = log.Named("billingcheck")

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				lock, err := runlock.Acquire(cfg.Worker.LockDir, lockName)
				if errors.Is(err, runlock.ErrAlreadyRunning) {
					log.Warn("billingcheck.already_running")
					shutdowner.Shutdown(fx.ExitCode(2))
					return
				}
				if err != nil {
					log.Error("billingcheck.lock_failed", zap.Error(err))
					shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				defer lock.Release()

				if err := r.Drain(context.Background()); err != nil {
					log.Error("billingcheck.drain_failed", zap.Error(err))
					shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				shutdowner.Shutdown()
			}()
			return nil
		},
	})
}
