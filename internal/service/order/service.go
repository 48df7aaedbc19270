// Package order owns order status transitions, including the actor
// privilege rules and the courier side effects of terminal transitions.
package order

import (
	"context"
	"fmt"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
)

// Service validates and applies order status transitions.
type Service struct {
	runner dispatchtx.Runner
	log    logx.Logger
	now    func() time.Time
}

// NewService creates an order Service.
func NewService(runner dispatchtx.Runner, log logx.Logger) *Service {
	return &Service{
		runner: runner,
		log:    log,
		now:    time.Now,
	}
}

// Transition moves the order to target on behalf of actor. Admins may
// override the transition table; clients may cancel only before a courier is
// involved. Courier bookkeeping rides in the same transaction: a delivered
// or cancelled order frees its courier, and picking up flips the courier to
// the delivery leg.
func (s *Service) Transition(ctx context.Context, orderID string, target domain.OrderStatus, actor domain.Actor) (*domain.Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("unknown order status %q: %w", target, apperr.ErrInvalid)
	}

	var updated *domain.Order
	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
		}

		from := o.Status
		allowed := from.CanTransition(target)
		forced := false
		if !allowed && actor == domain.ActorAdmin {
			allowed = true
			forced = true
		}
		if actor == domain.ActorClient && target == domain.OrderCancelled &&
			from != domain.OrderAwaitingPayment && from != domain.OrderPending {
			return fmt.Errorf("order %s already has a courier involved: %w", orderID, apperr.ErrConflict)
		}
		if !allowed {
			return &domain.InvalidTransitionError{
				Entity: "order",
				From:   string(from),
				To:     string(target),
			}
		}

		switch target {
		case domain.OrderCancelled, domain.OrderDelivered:
			if o.AssignedCourierID != nil {
				if err := s.freeCourier(ctx, tx, *o.AssignedCourierID); err != nil {
					return err
				}
			}
			if target == domain.OrderCancelled && o.AssignedCourierID != nil {
				if err := tx.ClearOrderAssignment(ctx, orderID); err != nil {
					return err
				}
				o.AssignedCourierID = nil
			}
		case domain.OrderPickedUp:
			if o.AssignedCourierID != nil {
				if err := s.startDeliveryLeg(ctx, tx, *o.AssignedCourierID); err != nil {
					return err
				}
			}
		case domain.OrderPending:
			if from == domain.OrderNoCourierAvailable {
				if err := tx.ResetOrderAttempts(ctx, orderID); err != nil {
					return err
				}
				o.AttemptCount = 0
			}
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, target); err != nil {
			return err
		}
		o.Status = target

		if err := tx.InsertEvent(ctx, &domain.Event{
			OrderID:   &o.ID,
			CourierID: o.AssignedCourierID,
			CreatedAt: s.now(),
			Payload: domain.StatusChangedPayload{
				Entity: "order",
				From:   string(from),
				To:     string(target),
				Forced: forced,
			},
		}); err != nil {
			return err
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status changed",
		logx.String("order_id", orderID),
		logx.String("status", string(target)),
		logx.String("actor", string(actor)),
	)
	return updated, nil
}

// freeCourier releases the courier from their active order; a traveling
// courier returns to ONLINE, an emergency one keeps their status.
func (s *Service) freeCourier(ctx context.Context, tx dispatchtx.Repository, courierID int64) error {
	c, err := tx.GetCourierForUpdate(ctx, courierID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	c.ActiveOrderID = nil
	if c.Status.Traveling() {
		c.Status = domain.CourierOnline
	}
	return tx.UpdateCourier(ctx, c)
}

func (s *Service) startDeliveryLeg(ctx context.Context, tx dispatchtx.Repository, courierID int64) error {
	c, err := tx.GetCourierForUpdate(ctx, courierID)
	if err != nil {
		return err
	}
	if c == nil || c.Status != domain.CourierEnRoutePickup {
		return nil
	}
	c.Status = domain.CourierEnRouteDelivery
	return tx.UpdateCourier(ctx, c)
}
