// Package worker drains the durable work queue, one claimed item at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/seaporthq/seaport/internal/clock"
	"github.com/seaporthq/seaport/internal/marketplace"
	"github.com/seaporthq/seaport/internal/observability/metrics"
	queuedomain "github.com/seaporthq/seaport/internal/queue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobName = "queue_drain"

// Processor handles one marketplace event end to end.
type Processor interface {
	Process(ctx context.Context, eventURL string) error
}

type Params struct {
	fx.In

	Queue     queuedomain.Service
	Processor Processor
	GenID     *snowflake.Node
	Clock     clock.Clock
	Metrics   *metrics.WorkerMetrics
	Log       *zap.Logger
}

// Worker processes queued events until the queue is empty or a failure
// demands operator attention.
type Worker struct {
	queue     queuedomain.Service
	processor Processor
	genID     *snowflake.Node
	clock     clock.Clock
	metrics   *metrics.WorkerMetrics
	log       *zap.Logger
}

func New(p Params) *Worker {
	return &Worker{
		queue:     p.Queue,
		processor: p.Processor,
		genID:     p.GenID,
		clock:     p.Clock,
		metrics:   p.Metrics,
		log:       p.Log.Named("queue.worker"),
	}
}

// Drain claims and processes items until the queue is empty. A duplicate
// (gone) event is finalized and skipped. Any other processing failure
// releases the item back to the queue and halts the run: the queue is
// ordered, and continuing past an unexplained failure could process events
// for the same subscription out of order.
func (w *Worker) Drain(ctx context.Context) error {
	runID := w.genID.Generate().String()
	start := time.Now()
	processed := 0
	duplicates := 0

	log := w.log.With(
		zap.String("job", jobName),
		zap.String("run_id", runID),
	)
	log.Info("worker.run.start")
	w.metrics.IncRun(jobName)
	defer func() {
		w.metrics.ObserveRunDuration(jobName, time.Since(start))
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := w.queue.ClaimNext(ctx)
		if errors.Is(err, queuedomain.ErrQueueEmpty) {
			log.Info("worker.run.finish",
				zap.Int("processed_count", processed),
				zap.Int("duplicate_count", duplicates),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return nil
		}
		if err != nil {
			w.metrics.IncRunError(jobName)
			return fmt.Errorf("claim next work item: %w", err)
		}

		procErr := w.processor.Process(ctx, item.EventURL)
		switch {
		case procErr == nil:
			if err := w.queue.Finalize(ctx, item); err != nil {
				w.metrics.IncRunError(jobName)
				return fmt.Errorf("finalize work item %s: %w", item.ID, err)
			}
			w.metrics.IncItemProcessed(metrics.OutcomeFinalized)
			processed++

		case errors.Is(procErr, marketplace.ErrEventGone):
			// The marketplace already saw a result for this event, so the
			// item is a duplicate and can be dropped.
			log.Info("worker.item.duplicate",
				zap.String("item_id", item.ID.String()),
				zap.String("event_url", item.EventURL),
			)
			if err := w.queue.Finalize(ctx, item); err != nil {
				w.metrics.IncRunError(jobName)
				return fmt.Errorf("finalize duplicate work item %s: %w", item.ID, err)
			}
			w.metrics.IncItemProcessed(metrics.OutcomeDuplicate)
			duplicates++

		default:
			if err := w.queue.Release(ctx, item); err != nil {
				w.metrics.IncRunError(jobName)
				return errors.Join(
					fmt.Errorf("process work item %s: %w", item.ID, procErr),
					fmt.Errorf("release work item %s: %w", item.ID, err),
				)
			}
			w.metrics.IncItemProcessed(metrics.OutcomeReleased)
			w.metrics.IncRunError(jobName)
			log.Error("worker.run.halted",
				zap.String("item_id", item.ID.String()),
				zap.String("event_url", item.EventURL),
				zap.Int("processed_count", processed),
				zap.Error(procErr),
			)
			return fmt.Errorf("process work item %s: %w", item.ID, procErr)
		}
	}
}
