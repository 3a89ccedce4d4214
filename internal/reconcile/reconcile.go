// Package reconcile runs the billing reconciliation pass: every account
// whose billing date is due is checked for seat overage and rolled to its
// next cycle.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/seaporthq/seaport/internal/account/domain"
	"github.com/seaporthq/seaport/internal/observability/metrics"
	"github.com/seaporthq/seaport/internal/provisioning"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobName = "billing_reconcile"

// UsageReporter is the slice of the marketplace client this loop needs.
type UsageReporter interface {
	ReportUsage(ctx context.Context, accountIdentifier string, overage int64) error
}

type Params struct {
	fx.In

	Accounts accountdomain.Service
	Backend  provisioning.Backend
	Reporter UsageReporter
	GenID    *snowflake.Node
	Metrics  *metrics.WorkerMetrics
	Log      *zap.Logger
}

// Reconciler claims due accounts one at a time and settles their cycle.
type Reconciler struct {
	accounts accountdomain.Service
	backend  provisioning.Backend
	reporter UsageReporter
	genID    *snowflake.Node
	metrics  *metrics.WorkerMetrics
	log      *zap.Logger
}

func New(p Params) *Reconciler {
	return &Reconciler{
		accounts: p.Accounts,
		backend:  p.Backend,
		reporter: p.Reporter,
		genID:    p.GenID,
		metrics:  p.Metrics,
		log:      p.Log.Named("reconcile"),
	}
}

// Drain reconciles until no account is due. The billing date is advanced
// unconditionally once an account is claimed: a failed seat count or usage
// report is logged and the account still moves to its next cycle, because a
// stuck billing date would re-bill the same overage forever.
func (r *Reconciler) Drain(ctx context.Context) error {
	runID := r.genID.Generate().String()
	start := time.Now()
	processed := 0

	log := r.log.With(
		zap.String("job", jobName),
		zap.String("run_id", runID),
	)
	log.Info("worker.run.start")
	r.metrics.IncRun(jobName)
	defer func() {
		r.metrics.ObserveRunDuration(jobName, time.Since(start))
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		account, err := r.accounts.ClaimNextExpiring(ctx)
		if errors.Is(err, accountdomain.ErrNoneExpiring) {
			log.Info("worker.run.finish",
				zap.Int("processed_count", processed),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return nil
		}
		if err != nil {
			r.metrics.IncRunError(jobName)
			return fmt.Errorf("claim next expiring account: %w", err)
		}

		r.reconcileOne(ctx, log, account)
		r.metrics.IncAccountReconciled()
		processed++

		if _, err := r.accounts.AdvanceBillingDate(ctx, account); err != nil {
			r.metrics.IncRunError(jobName)
			return fmt.Errorf("advance billing date for %s: %w", account.GroupName, err)
		}
		r.metrics.IncBillingAdvance()
	}
}

func (r *Reconciler) reconcileOne(ctx context.Context, log *zap.Logger, account accountdomain.Account) {
	live, err := r.backend.SeatCount(ctx, account.GroupName)
	if err != nil {
		log.Warn("reconcile.seat_count.failed",
			zap.String("group", account.GroupName),
			zap.Error(err),
		)
		return
	}

	overage := live - account.SeatLimit
	if overage <= 0 {
		log.Debug("reconcile.within_limit",
			zap.String("group", account.GroupName),
			zap.Int64("live", live),
			zap.Int64("seat_limit", account.SeatLimit),
		)
		return
	}

	if err := r.reporter.ReportUsage(ctx, account.GroupName, overage); err != nil {
		r.metrics.IncOverageReport(metrics.ReportFailed)
		log.Warn("reconcile.usage_report.failed",
			zap.String("group", account.GroupName),
			zap.Int64("overage", overage),
			zap.Error(err),
		)
		return
	}

	r.metrics.IncOverageReport(metrics.ReportOK)
	log.Info("reconcile.overage_reported",
		zap.String("group", account.GroupName),
		zap.Int64("live", live),
		zap.Int64("seat_limit", account.SeatLimit),
		zap.Int64("overage", overage),
	)
}
