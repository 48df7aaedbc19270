// Package courier owns courier status transitions and the daily rejection
// bookkeeping attached to them.
package courier

import (
	"context"
	"fmt"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
)

// Service validates and applies courier status transitions.
type Service struct {
	runner dispatchtx.Runner
	index  GeoIndex
	loc    *time.Location
	log    logx.Logger
	now    func() time.Time
}

// NewService creates a courier Service. loc is the timezone whose midnight
// bounds the daily rejection counter; index may be nil.
func NewService(runner dispatchtx.Runner, index GeoIndex, loc *time.Location, log logx.Logger) *Service {
	return &Service{
		runner: runner,
		index:  index,
		loc:    loc,
		log:    log,
		now:    time.Now,
	}
}

// Transition moves the courier to target if the state table allows it.
// Going ONLINE is refused while an order is still active; going OFFLINE
// clears the live position. The updated courier is returned.
func (s *Service) Transition(ctx context.Context, courierID int64, target domain.CourierStatus) (*domain.Courier, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("unknown courier status %q: %w", target, apperr.ErrInvalid)
	}

	var updated *domain.Courier
	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		c, err := tx.GetCourierForUpdate(ctx, courierID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("courier %d: %w", courierID, apperr.ErrNotFound)
		}

		if !c.Status.CanTransition(target) {
			return &domain.InvalidTransitionError{
				Entity: "courier",
				From:   string(c.Status),
				To:     string(target),
			}
		}
		if target == domain.CourierOnline && c.ActiveOrderID != nil {
			return fmt.Errorf("courier %d must finish order %s first: %w",
				courierID, *c.ActiveOrderID, apperr.ErrConflict)
		}

		from := c.Status
		if from == domain.CourierOffline && target == domain.CourierOnline {
			s.maybeResetRejections(c)
		}
		if target == domain.CourierOffline {
			c.Location = nil
		}
		c.Status = target

		if err := tx.UpdateCourier(ctx, c); err != nil {
			return err
		}
		if err := tx.InsertEvent(ctx, &domain.Event{
			CourierID: &c.ID,
			CreatedAt: s.now(),
			Payload: domain.StatusChangedPayload{
				Entity: "courier",
				From:   string(from),
				To:     string(target),
			},
		}); err != nil {
			return err
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if target == domain.CourierOffline && s.index != nil {
		if err := s.index.Remove(ctx, courierID); err != nil {
			s.log.Warn("geo index remove failed",
				logx.Int64("courier_id", courierID),
				logx.Any("error", err),
			)
		}
	}

	s.log.Info("courier status changed",
		logx.Int64("courier_id", courierID),
		logx.String("status", string(target)),
	)
	return updated, nil
}

// maybeResetRejections zeroes the daily rejection counter, but only when the
// last reset happened before today's local midnight. Going offline and back
// online within one day keeps the count.
func (s *Service) maybeResetRejections(c *domain.Courier) {
	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if c.RejectionsResetAt.Before(dayStart) {
		c.RejectionsToday = 0
		c.RejectionsResetAt = now
	}
}
