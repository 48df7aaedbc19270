package app

import (
	"context"
	"time"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/dispatch"
)

// Sweeper is the slice of the dispatch service the scheduler drives.
type Sweeper interface {
	ExpireOffers(ctx context.Context, limit int) (int, error)
	RetryPending(ctx context.Context, limit int) (int, error)
}

// Scheduler runs the periodic dispatch loops: expiring stale offers and
// re-distributing pending orders that have no live offer.
type Scheduler struct {
	sweeper Sweeper
	cfg     config.Scheduler
	log     logx.Logger
}

// NewScheduler wires the dispatch service into the worker loops.
func NewScheduler(svc *dispatch.Service, cfg *config.Config, log logx.Logger) *Scheduler {
	return &Scheduler{
		sweeper: svc,
		cfg:     cfg.Scheduler,
		log:     log,
	}
}

// Run blocks until ctx is cancelled. A failed pass is logged and retried on
// the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	expire := time.NewTicker(s.cfg.ExpireInterval)
	defer expire.Stop()
	retry := time.NewTicker(s.cfg.RetryInterval)
	defer retry.Stop()

	s.log.Info("scheduler started",
		logx.Duration("expire_interval", s.cfg.ExpireInterval),
		logx.Duration("retry_interval", s.cfg.RetryInterval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expire.C:
			n, err := s.sweeper.ExpireOffers(ctx, s.cfg.RetryBatchSize)
			if err != nil {
				s.log.Error("offer expiry pass failed", logx.Any("error", err))
				continue
			}
			if n > 0 {
				s.log.Info("expired stale offers", logx.Int("count", n))
			}
		case <-retry.C:
			n, err := s.sweeper.RetryPending(ctx, s.cfg.RetryBatchSize)
			if err != nil {
				s.log.Error("pending retry pass failed", logx.Any("error", err))
				continue
			}
			if n > 0 {
				s.log.Info("re-distributed pending orders", logx.Int("count", n))
			}
		}
	}
}
