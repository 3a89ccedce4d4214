package service

import (
	"context"
	"time"

	"github.com/seaporthq/seaport/internal/account/billingdate"
	accountdomain "github.com/seaporthq/seaport/internal/account/domain"
	"github.com/seaporthq/seaport/internal/clock"
	"github.com/seaporthq/seaport/internal/config"
	"go.uber.org/zap"
)

type service struct {
	repo        accountdomain.Repository
	clock       clock.Clock
	horizonDays int
	logger      *zap.Logger
}

func Provide(repo accountdomain.Repository, clk clock.Clock, cfg config.Config, logger *zap.Logger) accountdomain.Service {
	horizonDays := cfg.Worker.ExpiryHorizonDays
	if horizonDays < 0 {
		horizonDays = 0
	}
	return &service{
		repo:        repo,
		clock:       clk,
		horizonDays: horizonDays,
		logger:      logger.Named("account.service"),
	}
}

func (s *service) Create(ctx context.Context, account accountdomain.Account) (accountdomain.Account, error) {
	now := clock.Today(s.clock)
	if account.CreationDate.IsZero() {
		account.CreationDate = now
	}
	if account.BillingDate.IsZero() {
		// The first cycle bills one month after creation.
		account.BillingDate = billingdate.Next(account.CreationDate, account.CreationDate)
	}

	if err := s.repo.Insert(ctx, &account); err != nil {
		return accountdomain.Account{}, err
	}
	s.logger.Info("account.created",
		zap.String("group", account.GroupName),
		zap.String("edition", account.EditionCode),
		zap.Int64("seat_limit", account.SeatLimit),
		zap.Time("billing_date", account.BillingDate),
	)
	return account, nil
}

func (s *service) FindByGroup(ctx context.Context, group string) (accountdomain.Account, error) {
	return s.repo.FindByGroup(ctx, group)
}

func (s *service) UpdateEntitlements(ctx context.Context, group, editionCode string, seatLimit int64, storageTB float64) error {
	if err := s.repo.UpdateEntitlements(ctx, group, editionCode, seatLimit, storageTB); err != nil {
		return err
	}
	s.logger.Info("account.entitlements.updated",
		zap.String("group", group),
		zap.String("edition", editionCode),
		zap.Int64("seat_limit", seatLimit),
	)
	return nil
}

func (s *service) DeleteByGroup(ctx context.Context, group string) error {
	if err := s.repo.DeleteByGroup(ctx, group); err != nil {
		return err
	}
	s.logger.Info("account.deleted", zap.String("group", group))
	return nil
}

// ClaimNextExpiring claims the next account whose billing date falls within
// the configured look-ahead horizon.
func (s *service) ClaimNextExpiring(ctx context.Context) (accountdomain.Account, error) {
	horizon := clock.Today(s.clock).AddDate(0, 0, s.horizonDays)
	return s.repo.ClaimNextExpiring(ctx, horizon)
}

func (s *service) AdvanceBillingDate(ctx context.Context, account accountdomain.Account) (time.Time, error) {
	next := billingdate.Next(account.CreationDate, account.BillingDate)
	if err := s.repo.AdvanceBillingDate(ctx, account.ID, next); err != nil {
		return time.Time{}, err
	}
	s.logger.Info("account.billing_date.advanced",
		zap.String("group", account.GroupName),
		zap.Time("from", account.BillingDate),
		zap.Time("to", next),
	)
	return next, nil
}
