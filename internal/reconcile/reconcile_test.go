package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	accountdomain "github.com/seaporthq/seaport/internal/account/domain"
	"github.com/seaporthq/seaport/internal/observability/metrics"
	"github.com/seaporthq/seaport/internal/provisioning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAccounts struct {
	due      []accountdomain.Account
	claimErr error
	advanced []string
	advErr   error
}

func (a *fakeAccounts) Create(_ context.Context, account accountdomain.Account) (accountdomain.Account, error) {
	return account, nil
}

func (a *fakeAccounts) FindByGroup(_ context.Context, group string) (accountdomain.Account, error) {
	return accountdomain.Account{GroupName: group}, nil
}

func (a *fakeAccounts) UpdateEntitlements(_ context.Context, _, _ string, _ int64, _ float64) error {
	return nil
}

func (a *fakeAccounts) DeleteByGroup(_ context.Context, _ string) error { return nil }

func (a *fakeAccounts) ClaimNextExpiring(_ context.Context) (accountdomain.Account, error) {
	if a.claimErr != nil {
		return accountdomain.Account{}, a.claimErr
	}
	if len(a.due) == 0 {
		return accountdomain.Account{}, accountdomain.ErrNoneExpiring
	}
	account := a.due[0]
	a.due = a.due[1:]
	return account, nil
}

func (a *fakeAccounts) AdvanceBillingDate(_ context.Context, account accountdomain.Account) (time.Time, error) {
	if a.advErr != nil {
		return time.Time{}, a.advErr
	}
	a.advanced = append(a.advanced, account.GroupName)
	return account.BillingDate.AddDate(0, 1, 0), nil
}

type fakeSeatBackend struct {
	provisioning.Backend

	counts   map[string]int64
	countErr error
}

func (b *fakeSeatBackend) SeatCount(_ context.Context, group string) (int64, error) {
	if b.countErr != nil {
		return 0, b.countErr
	}
	return b.counts[group], nil
}

type fakeReporter struct {
	reports map[string]int64
	err     error
	calls   int
}

func (r *fakeReporter) ReportUsage(_ context.Context, accountIdentifier string, overage int64) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	if r.reports == nil {
		r.reports = map[string]int64{}
	}
	r.reports[accountIdentifier] = overage
	return nil
}

func newTestReconciler(t *testing.T, accounts *fakeAccounts, backend *fakeSeatBackend, reporter *fakeReporter) *Reconciler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		Accounts: accounts,
		Backend:  backend,
		Reporter: reporter,
		GenID:    node,
		Metrics:  metrics.New(prometheus.NewRegistry(), metrics.Config{ServiceName: "test", Environment: "test"}),
		Log:      zap.NewNop(),
	})
}

func dueAccount(group string, seatLimit int64) accountdomain.Account {
	return accountdomain.Account{
		GroupName:   group,
		SeatLimit:   seatLimit,
		BillingDate: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDrainReportsOverageAndAdvances(t *testing.T) {
	accounts := &fakeAccounts{due: []accountdomain.Account{dueAccount("acme", 5)}}
	backend := &fakeSeatBackend{counts: map[string]int64{"acme": 7}}
	reporter := &fakeReporter{}

	r := newTestReconciler(t, accounts, backend, reporter)
	require.NoError(t, r.Drain(context.Background()))

	assert.Equal(t, 1, reporter.calls)
	assert.Equal(t, int64(2), reporter.reports["acme"])
	assert.Equal(t, []string{"acme"}, accounts.advanced)
}

func TestDrainSkipsReportWithinLimit(t *testing.T) {
	accounts := &fakeAccounts{due: []accountdomain.Account{
		dueAccount("under", 10),
		dueAccount("exact", 5),
	}}
	backend := &fakeSeatBackend{counts: map[string]int64{"under": 3, "exact": 5}}
	reporter := &fakeReporter{}

	r := newTestReconciler(t, accounts, backend, reporter)
	require.NoError(t, r.Drain(context.Background()))

	assert.Zero(t, reporter.calls)
	assert.Equal(t, []string{"under", "exact"}, accounts.advanced)
}

func TestDrainAdvancesDespiteReportFailure(t *testing.T) {
	accounts := &fakeAccounts{due: []accountdomain.Account{dueAccount("acme", 5)}}
	backend := &fakeSeatBackend{counts: map[string]int64{"acme": 9}}
	reporter := &fakeReporter{err: errors.New("marketplace unavailable")}

	r := newTestReconciler(t, accounts, backend, reporter)
	require.NoError(t, r.Drain(context.Background()))

	assert.Equal(t, 1, reporter.calls)
	assert.Equal(t, []string{"acme"}, accounts.advanced)
}

func TestDrainAdvancesDespiteSeatCountFailure(t *testing.T) {
	accounts := &fakeAccounts{due: []accountdomain.Account{dueAccount("acme", 5)}}
	backend := &fakeSeatBackend{countErr: errors.New("backend unavailable")}
	reporter := &fakeReporter{}

	r := newTestReconciler(t, accounts, backend, reporter)
	require.NoError(t, r.Drain(context.Background()))

	assert.Zero(t, reporter.calls)
	assert.Equal(t, []string{"acme"}, accounts.advanced)
}

func TestDrainHaltsWhenAdvanceFails(t *testing.T) {
	boom := errors.New("database gone")
	accounts := &fakeAccounts{
		due:    []accountdomain.Account{dueAccount("acme", 5)},
		advErr: boom,
	}
	backend := &fakeSeatBackend{counts: map[string]int64{"acme": 2}}

	r := newTestReconciler(t, accounts, backend, &fakeReporter{})
	err := r.Drain(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDrainStopsWhenContextCancelled(t *testing.T) {
	accounts := &fakeAccounts{due: []accountdomain.Account{dueAccount("acme", 5)}}
	backend := &fakeSeatBackend{counts: map[string]int64{"acme": 1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestReconciler(t, accounts, backend, &fakeReporter{})
	err := r.Drain(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, accounts.advanced)
}
