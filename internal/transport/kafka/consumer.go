// Package kafka consumes order lifecycle events and feeds them to the
// dispatch processor.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"service-dispatch/internal/logx"
)

// Handler processes one decoded order event.
type Handler interface {
	Handle(ctx context.Context, eventType, orderID string) error
}

// Consumer reads the order-events topic through a consumer group.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler Handler
	log     logx.Logger
}

// NewConsumer connects a consumer group to the brokers.
func NewConsumer(brokers []string, groupID, topic string, handler Handler, log logx.Logger) (*Consumer, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return &Consumer{
		group:   group,
		topic:   topic,
		handler: handler,
		log:     log,
	}, nil
}

// Run consumes until ctx is cancelled, rejoining the group after rebalances.
func (c *Consumer) Run(ctx context.Context) error {
	handler := &groupHandler{handler: c.handler, log: c.log}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Error("consumer group session failed", logx.Any("error", err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	handler Handler
	log     logx.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim decodes and handles messages one by one. Malformed payloads
// and handler failures are logged and acknowledged; a poisoned message must
// not wedge the partition.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			var evt OrderEvent
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				h.log.Error("malformed order event",
					logx.Int64("offset", msg.Offset),
					logx.Any("error", err),
				)
				session.MarkMessage(msg, "")
				continue
			}

			if err := h.handler.Handle(session.Context(), evt.EventType, evt.OrderID); err != nil {
				h.log.Error("order event handling failed",
					logx.String("event_type", evt.EventType),
					logx.String("order_id", evt.OrderID),
					logx.Any("error", err),
				)
			}
			session.MarkMessage(msg, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
