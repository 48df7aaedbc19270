package dispatch

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
)

// ExpireOffers sweeps pending offers whose window closed and applies the
// timeout side effects to each. One bad offer does not stop the sweep.
// Returns how many offers were expired.
func (s *Service) ExpireOffers(ctx context.Context, limit int) (int, error) {
	stale, err := s.offers.ListExpiredPending(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, offer := range stale {
		var autoPaused, swept bool
		err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
			cur, err := tx.GetOfferForUpdate(ctx, offer.ID)
			if err != nil {
				return err
			}
			// re-check under lock: a response may have landed since the scan
			if cur == nil || cur.Status != domain.OfferPending || !cur.Expired(s.now()) {
				return nil
			}
			swept = true
			return s.failOffer(ctx, tx, cur, domain.FailureTimeout, &autoPaused)
		})
		if err != nil {
			s.log.Error("offer expiry failed",
				logx.String("offer_id", offer.ID),
				logx.Any("error", err),
			)
			continue
		}
		if !swept {
			continue
		}
		expired++
		s.offerFailures.WithLabelValues(string(domain.FailureTimeout)).Inc()
		if autoPaused && s.index != nil {
			if err := s.index.Remove(ctx, offer.CourierID); err != nil {
				s.log.Warn("geo index remove failed",
					logx.Int64("courier_id", offer.CourierID),
					logx.Any("error", err),
				)
			}
		}
	}
	return expired, nil
}

// RetryPending re-runs distribution for pending orders with no live offer.
// Returns how many new offers were created.
func (s *Service) RetryPending(ctx context.Context, limit int) (int, error) {
	orders, err := s.orders.ListRetryablePending(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, o := range orders {
		res, err := s.Distribute(ctx, o.ID)
		if err != nil {
			s.log.Error("retry distribution failed",
				logx.String("order_id", o.ID),
				logx.Any("error", err),
			)
			continue
		}
		if res.Outcome == OutcomeOfferCreated {
			created++
		}
	}
	return created, nil
}
