package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/seaporthq/seaport/internal/clock"
	"github.com/seaporthq/seaport/internal/observability/metrics"
	queuedomain "github.com/seaporthq/seaport/internal/queue/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type repo struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   clock.Clock
	metrics *metrics.WorkerMetrics
	logger  *zap.Logger
}

func Provide(db *gorm.DB, node *snowflake.Node, clk clock.Clock, m *metrics.WorkerMetrics, logger *zap.Logger) queuedomain.Repository {
	return &repo{
		db:      db,
		node:    node,
		clock:   clk,
		metrics: m,
		logger:  logger.Named("queue.repository"),
	}
}

func (r *repo) Push(ctx context.Context, eventURL string) (queuedomain.WorkItem, error) {
	item := queuedomain.WorkItem{
		ID:         r.node.Generate(),
		EventURL:   eventURL,
		InProgress: false,
		EnqueuedAt: r.clock.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO queue_items (id, event_url, in_progress, enqueued_at)
		 VALUES (?, ?, ?, ?)`,
		item.ID,
		item.EventURL,
		item.InProgress,
		item.EnqueuedAt,
	).Error
	if err != nil {
		return queuedomain.WorkItem{}, err
	}
	return item, nil
}

// ClaimNext selects the oldest unclaimed row, then claims it with a
// conditional update guarded by in_progress = FALSE. The select and the
// update deliberately run outside a shared transaction: losing the race
// costs one retry, and the guard makes a double claim impossible. A lost
// race moves on to the next candidate instead of recursing.
func (r *repo) ClaimNext(ctx context.Context) (queuedomain.WorkItem, error) {
	for {
		var candidates []queuedomain.WorkItem
		err := r.db.WithContext(ctx).Raw(
			`SELECT id, event_url, in_progress, enqueued_at
			 FROM queue_items
			 WHERE in_progress = FALSE
			 ORDER BY enqueued_at ASC, id ASC
			 LIMIT 1`,
		).Scan(&candidates).Error
		if err != nil {
			return queuedomain.WorkItem{}, err
		}
		if len(candidates) == 0 {
			return queuedomain.WorkItem{}, queuedomain.ErrQueueEmpty
		}

		candidate := candidates[0]
		result := r.db.WithContext(ctx).Exec(
			`UPDATE queue_items
			 SET in_progress = TRUE
			 WHERE id = ? AND in_progress = FALSE`,
			candidate.ID,
		)
		if result.Error != nil {
			return queuedomain.WorkItem{}, result.Error
		}
		if result.RowsAffected == 0 {
			// Another worker claimed the row between select and update.
			r.metrics.IncClaimRace("queue_items")
			r.logger.Debug("queue.claim.race",
				zap.String("item_id", candidate.ID.String()),
			)
			continue
		}

		candidate.InProgress = true
		return candidate, nil
	}
}

func (r *repo) Release(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE queue_items SET in_progress = FALSE WHERE id = ?`,
		id,
	).Error
}

func (r *repo) Finalize(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM queue_items WHERE id = ?`,
		id,
	).Error
}
