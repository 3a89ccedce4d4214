package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	accountdomain "github.com/seaporthq/seaport/internal/account/domain"
	"github.com/seaporthq/seaport/internal/clock"
	"github.com/seaporthq/seaport/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (accountdomain.Repository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&accountdomain.Account{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC))
	m := metrics.New(prometheus.NewRegistry(), metrics.Config{ServiceName: "test", Environment: "test"})

	return Provide(db, node, clk, m, zap.NewNop()), db
}

func seedAccount(t *testing.T, repo accountdomain.Repository, group string, billingDate time.Time) accountdomain.Account {
	t.Helper()
	account := accountdomain.Account{
		GroupName:    group,
		Admin:        "admin@" + group,
		BillingDate:  billingDate,
		CreationDate: billingDate.AddDate(0, -1, 0),
		EditionCode:  "M",
		SeatLimit:    5,
		StorageTB:    1,
	}
	require.NoError(t, repo.Insert(context.Background(), &account))
	return account
}

func TestInsertAndFindByGroup(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	seeded := seedAccount(t, repo, "acme", time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))

	found, err := repo.FindByGroup(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, "M", found.EditionCode)
	assert.False(t, found.InProcessing)

	_, err = repo.FindByGroup(ctx, "missing")
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}

func TestUpdateEntitlements(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	seedAccount(t, repo, "acme", time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))

	require.NoError(t, repo.UpdateEntitlements(ctx, "acme", "XL", 20, 5))

	found, err := repo.FindByGroup(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "XL", found.EditionCode)
	assert.Equal(t, int64(20), found.SeatLimit)
	assert.Equal(t, float64(5), found.StorageTB)

	assert.ErrorIs(t, repo.UpdateEntitlements(ctx, "missing", "M", 5, 1), accountdomain.ErrAccountNotFound)
}

func TestDeleteByGroup(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	seedAccount(t, repo, "acme", time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))

	require.NoError(t, repo.DeleteByGroup(ctx, "acme"))
	_, err := repo.FindByGroup(ctx, "acme")
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)

	assert.ErrorIs(t, repo.DeleteByGroup(ctx, "acme"), accountdomain.ErrAccountNotFound)
}

func TestClaimNextExpiringOrdersByBillingDate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	horizon := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)

	later := seedAccount(t, repo, "later", time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC))
	sooner := seedAccount(t, repo, "sooner", time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	seedAccount(t, repo, "distant", time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))

	claimed, err := repo.ClaimNextExpiring(ctx, horizon)
	require.NoError(t, err)
	assert.Equal(t, sooner.ID, claimed.ID)
	assert.True(t, claimed.InProcessing)

	claimed2, err := repo.ClaimNextExpiring(ctx, horizon)
	require.NoError(t, err)
	assert.Equal(t, later.ID, claimed2.ID)

	// The distant account is outside the horizon.
	_, err = repo.ClaimNextExpiring(ctx, horizon)
	assert.ErrorIs(t, err, accountdomain.ErrNoneExpiring)
}

func TestClaimNextExpiringSkipsRowLostToConcurrentClaimant(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	horizon := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)

	stolen := seedAccount(t, repo, "stolen", time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	next := seedAccount(t, repo, "next", time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))

	require.NoError(t, db.Exec(
		`UPDATE accounts SET in_processing = TRUE WHERE id = ?`, stolen.ID,
	).Error)

	claimed, err := repo.ClaimNextExpiring(ctx, horizon)
	require.NoError(t, err)
	assert.Equal(t, next.ID, claimed.ID)
}

func TestAdvanceBillingDateReleasesClaim(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	horizon := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)

	seedAccount(t, repo, "acme", time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))

	claimed, err := repo.ClaimNextExpiring(ctx, horizon)
	require.NoError(t, err)

	next := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AdvanceBillingDate(ctx, claimed.ID, next))

	found, err := repo.FindByGroup(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, found.InProcessing)
	assert.Equal(t, next, found.BillingDate.UTC())

	// The advanced date is past the horizon, so nothing is claimable.
	_, err = repo.ClaimNextExpiring(ctx, horizon)
	assert.ErrorIs(t, err, accountdomain.ErrNoneExpiring)
}
