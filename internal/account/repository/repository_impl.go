package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/seaporthq/seaport/internal/account/domain"
	"github.com/seaporthq/seaport/internal/clock"
	"github.com/seaporthq/seaport/internal/observability/metrics"
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

func Provide(db *gorm.DB, node *snowflake.Node, clk clock.Clock, m *metrics.WorkerMetrics, logger *zap.Logger) accountdomain.Repository {
	return &repo{
		db:      db,
		node:    node,
		clock:   clk,
		metrics: m,
		logger:  logger.Named("account.repository"),
	}
}

func (r *repo) Insert(ctx context.Context, account *accountdomain.Account) error {
	now := r.clock.Now().UTC()
	if account.ID == 0 {
		account.ID = r.node.Generate()
	}
	account.CreatedAt = now
	account.UpdatedAt = now

	return r.db.WithContext(ctx).Exec(
		`INSERT INTO accounts (
			id, group_name, admin, billing_date, creation_date, edition_code,
			seat_limit, storage_tb, in_processing, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.GroupName,
		account.Admin,
		account.BillingDate,
		account.CreationDate,
		account.EditionCode,
		account.SeatLimit,
		account.StorageTB,
		account.InProcessing,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindByGroup(ctx context.Context, group string) (accountdomain.Account, error) {
	var accounts []accountdomain.Account
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, group_name, admin, billing_date, creation_date, edition_code,
		        seat_limit, storage_tb, in_processing, created_at, updated_at
		 FROM accounts
		 WHERE group_name = ?
		 LIMIT 1`,
		group,
	).Scan(&accounts).Error
	if err != nil {
		return accountdomain.Account{}, err
	}
	if len(accounts) == 0 {
		return accountdomain.Account{}, accountdomain.ErrAccountNotFound
	}
	return accounts[0], nil
}

func (r *repo) UpdateEntitlements(ctx context.Context, group, editionCode string, seatLimit int64, storageTB float64) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET edition_code = ?, seat_limit = ?, storage_tb = ?, updated_at = ?
		 WHERE group_name = ?`,
		editionCode,
		seatLimit,
		storageTB,
		r.clock.Now().UTC(),
		group,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return accountdomain.ErrAccountNotFound
	}
	return nil
}

func (r *repo) DeleteByGroup(ctx context.Context, group string) error {
	result := r.db.WithContext(ctx).Exec(
		`DELETE FROM accounts WHERE group_name = ?`,
		group,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return accountdomain.ErrAccountNotFound
	}
	return nil
}

// ClaimNextExpiring mirrors the queue claim protocol: select the account
// with the earliest billing date inside the horizon, then claim it with a
// conditional update guarded by in_processing = FALSE. A lost race moves on
// to the next candidate.
func (r *repo) ClaimNextExpiring(ctx context.Context, horizon time.Time) (accountdomain.Account, error) {
	for {
		var candidates []accountdomain.Account
		err := r.db.WithContext(ctx).Raw(
			`SELECT id, group_name, admin, billing_date, creation_date, edition_code,
			        seat_limit, storage_tb, in_processing, created_at, updated_at
			 FROM accounts
			 WHERE in_processing = FALSE AND billing_date <= ?
			 ORDER BY billing_date ASC, id ASC
			 LIMIT 1`,
			horizon.UTC(),
		).Scan(&candidates).Error
		if err != nil {
			return accountdomain.Account{}, err
		}
		if len(candidates) == 0 {
			return accountdomain.Account{}, accountdomain.ErrNoneExpiring
		}

		candidate := candidates[0]
		result := r.db.WithContext(ctx).Exec(
			`UPDATE accounts
			 SET in_processing = TRUE
			 WHERE id = ? AND in_processing = FALSE`,
			candidate.ID,
		)
		if result.Error != nil {
			return accountdomain.Account{}, result.Error
		}
		if result.RowsAffected == 0 {
			r.metrics.IncClaimRace("accounts")
			r.logger.Debug("account.claim.race",
				zap.String("account_id", candidate.ID.String()),
			)
			continue
		}

		candidate.InProcessing = true
		return candidate, nil
	}
}

// AdvanceBillingDate releases the claim and moves the billing date in one
// statement so a crash between the two cannot strand a claimed row with a
// stale date.
func (r *repo) AdvanceBillingDate(ctx context.Context, id snowflake.ID, next time.Time) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET billing_date = ?, in_processing = FALSE, updated_at = ?
		 WHERE id = ?`,
		next.UTC(),
		r.clock.Now().UTC(),
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return accountdomain.ErrAccountNotFound
	}
	return nil
}
