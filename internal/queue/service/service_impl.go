package service

import (
	"context"

	queuedomain "github.com/seaporthq/seaport/internal/queue/domain"
	"go.uber.org/zap"
)

type service struct {
	repo   queuedomain.Repository
	logger *zap.Logger
}

func Provide(repo queuedomain.Repository, logger *zap.Logger) queuedomain.Service {
	return &service{
		repo:   repo,
		logger: logger.Named("queue.service"),
	}
}

func (s *service) Enqueue(ctx context.Context, eventURL string) (queuedomain.WorkItem, error) {
	item, err := s.repo.Push(ctx, eventURL)
	if err != nil {
		return queuedomain.WorkItem{}, err
	}
	s.logger.Info("queue.enqueued",
		zap.String("item_id", item.ID.String()),
		zap.String("event_url", item.EventURL),
	)
	return item, nil
}

func (s *service) ClaimNext(ctx context.Context) (queuedomain.WorkItem, error) {
	return s.repo.ClaimNext(ctx)
}

func (s *service) Release(ctx context.Context, item queuedomain.WorkItem) error {
	if err := s.repo.Release(ctx, item.ID); err != nil {
		return err
	}
	s.logger.Info("queue.released",
		zap.String("item_id", item.ID.String()),
		zap.String("event_url", item.EventURL),
	)
	return nil
}

func (s *service) Finalize(ctx context.Context, item queuedomain.WorkItem) error {
	if err := s.repo.Finalize(ctx, item.ID); err != nil {
		return err
	}
	s.logger.Info("queue.finalized",
		zap.String("item_id", item.ID.String()),
		zap.String("event_url", item.EventURL),
	)
	return nil
}
