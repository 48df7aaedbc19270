package app

import (
	"context"
	"fmt"

	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/service/order"
	"service-dispatch/internal/transport/kafka"
)

// MustBuildWorkerContainer builds the DI container for the worker process:
// the order-event consumer plus the offer expiry / retry scheduler.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuildWorker(ctx)
}

// MustBuildWorker builds and returns the worker dig container
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	container, err := b.buildWorker(ctx)
	if err != nil {
		b.logFatalf("failed to build worker container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) buildWorker(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerInfra(container); err != nil {
		return nil, fmt.Errorf("infra: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		func(svc *order.Service) dispatch.OrderTransitioner { return svc },
		dispatch.NewProcessor,
		newOrderEventsConsumer,
		NewScheduler,
	)
}

// newOrderEventsConsumer returns nil when Kafka is not configured; the
// worker then runs the scheduler loops only.
func newOrderEventsConsumer(cfg *config.Config, p *dispatch.Processor, logger logx.Logger) (*kafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.OrderEventsTopic == "" {
		return nil, nil
	}
	return kafka.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.OrderEventsGroup,
		cfg.Kafka.OrderEventsTopic,
		p,
		logger,
	)
}
