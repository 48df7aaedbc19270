package dispatch

import (
	"context"
	"fmt"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// Order event types consumed from the order-events topic.
const (
	OrderEventPaid      = "order.paid"
	OrderEventCancelled = "order.cancelled"
)

// Processor reacts to order lifecycle events: a paid order enters the
// pending pool and is distributed immediately; a cancellation is applied as
// a system transition.
type Processor struct {
	orders   OrderTransitioner
	dispatch *Service
	log      logx.Logger

	actions map[string]func(ctx context.Context, orderID string) error
}

// NewProcessor creates a Processor.
func NewProcessor(orders OrderTransitioner, dispatch *Service, log logx.Logger) *Processor {
	p := &Processor{
		orders:   orders,
		dispatch: dispatch,
		log:      log,
	}
	p.actions = map[string]func(ctx context.Context, orderID string) error{
		OrderEventPaid:      p.handlePaid,
		OrderEventCancelled: p.handleCancelled,
	}
	return p
}

// Handle routes one event to its action. Unknown event types are logged and
// acknowledged so the topic never wedges on them.
func (p *Processor) Handle(ctx context.Context, eventType, orderID string) error {
	action, ok := p.actions[eventType]
	if !ok {
		p.log.Warn("unknown order event",
			logx.String("event_type", eventType),
			logx.String("order_id", orderID),
		)
		return nil
	}
	return action(ctx, orderID)
}

func (p *Processor) handlePaid(ctx context.Context, orderID string) error {
	if _, err := p.orders.Transition(ctx, orderID, domain.OrderPending, domain.ActorSystem); err != nil {
		return fmt.Errorf("move order %s to pending: %w", orderID, err)
	}
	res, err := p.dispatch.Distribute(ctx, orderID)
	if err != nil {
		return fmt.Errorf("distribute order %s: %w", orderID, err)
	}
	p.log.Info("paid order distributed",
		logx.String("order_id", orderID),
		logx.String("outcome", string(res.Outcome)),
	)
	return nil
}

func (p *Processor) handleCancelled(ctx context.Context, orderID string) error {
	if _, err := p.orders.Transition(ctx, orderID, domain.OrderCancelled, domain.ActorSystem); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}
