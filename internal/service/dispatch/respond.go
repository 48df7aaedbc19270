package dispatch

import (
	"context"
	"fmt"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
)

// RespondOutcome classifies how an offer response was resolved.
type RespondOutcome string

// Response outcomes
const (
	RespondAccepted         RespondOutcome = "accepted"
	RespondRejected         RespondOutcome = "rejected"
	RespondExpired          RespondOutcome = "offer_expired"
	RespondOrderUnavailable RespondOutcome = "order_unavailable"
)

// RespondResult is the outcome of one Respond call.
type RespondResult struct {
	Outcome    RespondOutcome
	AutoPaused bool
}

// Respond applies a courier's answer to an offer. Expiry wins over the
// answer: a late accept produces exactly the timeout side effects. All
// state checks and mutations happen in one transaction.
func (s *Service) Respond(ctx context.Context, offerID string, accept bool, at *geo.Point) (RespondResult, error) {
	var (
		result    RespondResult
		courierID int64
	)
	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		offer, err := tx.GetOfferForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if offer == nil {
			return fmt.Errorf("offer %s: %w", offerID, apperr.ErrNotFound)
		}
		courierID = offer.CourierID
		if offer.Status != domain.OfferPending {
			return fmt.Errorf("offer %s already resolved as %s: %w", offerID, offer.Status, apperr.ErrConflict)
		}

		if offer.Expired(s.now()) {
			result.Outcome = RespondExpired
			return s.failOffer(ctx, tx, offer, domain.FailureTimeout, &result.AutoPaused)
		}

		if !accept {
			result.Outcome = RespondRejected
			return s.failOffer(ctx, tx, offer, domain.FailureRejected, &result.AutoPaused)
		}

		o, err := tx.GetOrderForUpdate(ctx, offer.OrderID)
		if err != nil {
			return err
		}
		if o == nil || o.Status != domain.OrderPending || o.AssignedCourierID != nil {
			// lost the race: another acceptance or a cancellation got there first
			if err := tx.UpdateOfferStatus(ctx, offer.ID, domain.OfferExpired, domain.FailureNone); err != nil {
				return err
			}
			result.Outcome = RespondOrderUnavailable
			return nil
		}

		return s.acceptOffer(ctx, tx, offer, at, &result)
	})
	if err != nil {
		return RespondResult{}, err
	}

	switch result.Outcome {
	case RespondRejected:
		s.offerFailures.WithLabelValues(string(domain.FailureRejected)).Inc()
	case RespondExpired:
		s.offerFailures.WithLabelValues(string(domain.FailureTimeout)).Inc()
	}
	if result.AutoPaused && s.index != nil {
		if err := s.index.Remove(ctx, courierID); err != nil {
			s.log.Warn("geo index remove failed",
				logx.Int64("courier_id", courierID),
				logx.Any("error", err),
			)
		}
	}

	s.log.Info("offer resolved",
		logx.String("offer_id", offerID),
		logx.String("outcome", string(result.Outcome)),
		logx.Bool("auto_paused", result.AutoPaused),
	)
	return result, nil
}

func (s *Service) acceptOffer(ctx context.Context, tx dispatchtx.Repository, offer *domain.Offer, at *geo.Point, result *RespondResult) error {
	c, err := tx.GetCourierForUpdate(ctx, offer.CourierID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("courier %d: %w", offer.CourierID, apperr.ErrNotFound)
	}
	if c.Status != domain.CourierOnline || c.ActiveOrderID != nil {
		return fmt.Errorf("courier %d cannot take an order in status %s: %w",
			c.ID, c.Status, apperr.ErrConflict)
	}

	if err := tx.AssignOrder(ctx, offer.OrderID, c.ID); err != nil {
		return err
	}
	if err := tx.UpdateOrderStatus(ctx, offer.OrderID, domain.OrderAccepted); err != nil {
		return err
	}

	c.Status = domain.CourierEnRoutePickup
	c.ActiveOrderID = &offer.OrderID
	if at != nil {
		c.Location = &domain.Location{Point: *at, UpdatedAt: s.now()}
	}
	if err := tx.UpdateCourier(ctx, c); err != nil {
		return err
	}

	if err := tx.UpdateOfferStatus(ctx, offer.ID, domain.OfferAccepted, domain.FailureNone); err != nil {
		return err
	}
	// the uniqueness invariant should leave nothing to expire here
	if _, err := tx.ExpirePendingOffers(ctx, offer.OrderID, offer.ID); err != nil {
		return err
	}

	if err := tx.InsertEvent(ctx, &domain.Event{
		OrderID:   &offer.OrderID,
		CourierID: &c.ID,
		CreatedAt: s.now(),
		Payload:   domain.OfferAcceptedPayload{OfferID: offer.ID},
	}); err != nil {
		return err
	}

	result.Outcome = RespondAccepted
	return nil
}

// failOffer closes the offer with reason and applies the shared rejection
// penalty: one more rejection today, a priority bump, and an auto-pause to
// OFFLINE once the daily cap is hit.
func (s *Service) failOffer(ctx context.Context, tx dispatchtx.Repository, offer *domain.Offer, reason domain.FailureReason, autoPaused *bool) error {
	status := domain.OfferRejected
	if reason == domain.FailureTimeout {
		status = domain.OfferExpired
	}
	if err := tx.UpdateOfferStatus(ctx, offer.ID, status, reason); err != nil {
		return err
	}

	c, err := tx.GetCourierForUpdate(ctx, offer.CourierID)
	if err != nil {
		return err
	}
	payload := domain.OfferFailedPayload{OfferID: offer.ID, Reason: reason}
	if c != nil {
		c.RejectionsToday++
		c.PriorityScore += s.cfg.RejectionPenaltyPoints
		if c.RejectionsToday >= s.cfg.MaxRejectionsBeforePause &&
			c.Status != domain.CourierOffline && c.ActiveOrderID == nil {
			c.Status = domain.CourierOffline
			c.Location = nil
			*autoPaused = true
		}
		if err := tx.UpdateCourier(ctx, c); err != nil {
			return err
		}
		payload.RejectionsToday = c.RejectionsToday
		payload.PriorityScore = c.PriorityScore
		payload.AutoPaused = *autoPaused
	}

	return tx.InsertEvent(ctx, &domain.Event{
		OrderID:   &offer.OrderID,
		CourierID: &offer.CourierID,
		CreatedAt: s.now(),
		Payload:   payload,
	})
}
