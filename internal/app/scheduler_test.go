package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
)

type stubSweeper struct {
	expired int64
	retried int64
	err     error
}

func (s *stubSweeper) ExpireOffers(ctx context.Context, limit int) (int, error) {
	atomic.AddInt64(&s.expired, 1)
	return 1, s.err
}

func (s *stubSweeper) RetryPending(ctx context.Context, limit int) (int, error) {
	atomic.AddInt64(&s.retried, 1)
	return 1, s.err
}

func TestScheduler_RunsBothLoops(t *testing.T) {
	t.Parallel()

	sweeper := &stubSweeper{}
	s := &Scheduler{
		sweeper: sweeper,
		cfg: config.Scheduler{
			ExpireInterval: 5 * time.Millisecond,
			RetryInterval:  5 * time.Millisecond,
			RetryBatchSize: 10,
		},
		log: logx.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&sweeper.expired) > 0 && atomic.LoadInt64(&sweeper.retried) > 0
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}

func TestScheduler_KeepsTickingAfterFailure(t *testing.T) {
	t.Parallel()

	sweeper := &stubSweeper{err: errors.New("db down")}
	s := &Scheduler{
		sweeper: sweeper,
		cfg: config.Scheduler{
			ExpireInterval: 5 * time.Millisecond,
			RetryInterval:  5 * time.Millisecond,
			RetryBatchSize: 10,
		},
		log: logx.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&sweeper.expired) >= 2
	}, time.Second, time.Millisecond)
}
