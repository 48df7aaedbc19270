package notify

import (
	"context"
	"errors"

	"service-dispatch/internal/logx"
)

// Notifier delivers a message over the courier's websocket session when one
// exists, falling back to the Kafka notification topic otherwise.
type Notifier struct {
	registry *Registry
	producer *Producer
	log      logx.Logger
}

// NewNotifier creates a Notifier. producer may be nil when Kafka is not
// configured; then only connected couriers are reachable.
func NewNotifier(registry *Registry, producer *Producer, log logx.Logger) *Notifier {
	return &Notifier{registry: registry, producer: producer, log: log}
}

// Notify pushes the message to the courier. Delivery is best effort: the
// error is for the caller's log line, never for aborting dispatch.
func (n *Notifier) Notify(ctx context.Context, courierID int64, msg Message) error {
	err := n.registry.Push(ctx, courierID, msg)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotConnected) {
		n.log.Warn("websocket push failed",
			logx.Int64("courier_id", courierID),
			logx.String("type", msg.Type),
			logx.Any("error", err),
		)
	}

	if n.producer == nil {
		return err
	}
	if err := n.producer.Publish(courierID, msg); err != nil {
		return err
	}
	return nil
}
