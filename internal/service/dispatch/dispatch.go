// Package dispatch implements the offer distribution protocol: candidate
// selection, ranking, timed offers and the accept/reject/timeout handling
// with its penalties and escalation.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/config"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/repository"
)

// Outcome classifies what Distribute achieved. Only OutcomeOfferCreated
// carries an offer; the rest are normal non-error results.
type Outcome string

// Distribution outcomes
const (
	OutcomeOfferCreated       Outcome = "offer_created"
	OutcomeAlreadyInProgress  Outcome = "already_in_progress"
	OutcomeWaitingForCourier  Outcome = "waiting_for_courier"
	OutcomeNoCourierAvailable Outcome = "no_courier_available"
)

// Result is the outcome of one Distribute call.
type Result struct {
	Outcome Outcome
	Offer   *domain.Offer
}

// nearbyLimit caps how many index hits are pulled per distribution round.
const nearbyLimit = 50

// Service runs the offer distribution protocol.
type Service struct {
	runner   dispatchtx.Runner
	couriers CourierSource
	orders   OrderSource
	offers   OfferSource
	index    CandidateIndex
	notifier Notifier

	cfg           config.Offers
	offersCreated prometheus.Counter
	offerFailures *prometheus.CounterVec
	log           logx.Logger
	now           func() time.Time
}

// NewService creates a dispatch Service. index may be nil; candidates then
// come from a full available-courier scan.
func NewService(
	runner dispatchtx.Runner,
	couriers CourierSource,
	orders OrderSource,
	offers OfferSource,
	index CandidateIndex,
	notifier Notifier,
	cfg config.Offers,
	offersCreated prometheus.Counter,
	offerFailures *prometheus.CounterVec,
	log logx.Logger,
) *Service {
	return &Service{
		runner:        runner,
		couriers:      couriers,
		orders:        orders,
		offers:        offers,
		index:         index,
		notifier:      notifier,
		cfg:           cfg,
		offersCreated: offersCreated,
		offerFailures: offerFailures,
		log:           log,
		now:           time.Now,
	}
}

type candidate struct {
	courier    *domain.Courier
	distanceKm float64
}

// Distribute offers the order to the best available courier. Candidates are
// ranked outside the transaction and re-verified row by row inside it; the
// offer insert itself is guarded against a concurrent live offer.
func (s *Service) Distribute(ctx context.Context, orderID string) (Result, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return Result{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
		}
		return Result{}, err
	}
	if o.Status != domain.OrderPending || o.AssignedCourierID != nil {
		return Result{Outcome: OutcomeAlreadyInProgress}, nil
	}
	if !o.Geocoded() {
		return Result{}, fmt.Errorf("order %s is not geocoded: %w", orderID, apperr.ErrInvalid)
	}
	if o.AttemptCount >= s.cfg.MaxAttempts {
		return s.escalate(ctx, orderID)
	}

	candidates, err := s.rankCandidates(ctx, *o.Origin)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) == 0 {
		s.log.Info("no candidates for order", logx.String("order_id", orderID))
		return Result{Outcome: OutcomeWaitingForCourier}, nil
	}

	result := Result{Outcome: OutcomeWaitingForCourier}
	err = s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		cur, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
		}
		if cur.Status != domain.OrderPending || cur.AssignedCourierID != nil {
			result = Result{Outcome: OutcomeAlreadyInProgress}
			return nil
		}

		for _, cand := range candidates {
			c, err := tx.GetCourierForUpdate(ctx, cand.courier.ID)
			if err != nil {
				return err
			}
			if !dispatchable(c) {
				continue
			}

			now := s.now()
			offer := &domain.Offer{
				ID:                 uuid.NewString(),
				OrderID:            orderID,
				CourierID:          c.ID,
				DistanceToPickupKm: cand.distanceKm,
				AttemptNumber:      cur.AttemptCount + 1,
				OfferedAt:          now,
				ExpiresAt:          now.Add(s.cfg.Timeout),
				Status:             domain.OfferPending,
			}
			inserted, err := tx.InsertOfferIfNone(ctx, offer)
			if err != nil {
				return err
			}
			if !inserted {
				// a concurrent round already holds a live offer
				result = Result{Outcome: OutcomeAlreadyInProgress}
				return nil
			}
			if _, err := tx.IncrementOrderAttempts(ctx, orderID); err != nil {
				return err
			}
			if err := tx.InsertEvent(ctx, &domain.Event{
				OrderID:   &orderID,
				CourierID: &c.ID,
				CreatedAt: now,
				Payload: domain.OfferCreatedPayload{
					OfferID:            offer.ID,
					AttemptNumber:      offer.AttemptNumber,
					DistanceToPickupKm: offer.DistanceToPickupKm,
				},
			}); err != nil {
				return err
			}

			result = Result{Outcome: OutcomeOfferCreated, Offer: offer}
			return nil
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if result.Outcome == OutcomeOfferCreated {
		s.offersCreated.Inc()
		s.notifyOffer(ctx, result.Offer, o)
	}
	return result, nil
}

// rankCandidates returns dispatchable couriers within the pickup radius,
// best first: lowest priority score, then shortest distance to pickup.
func (s *Service) rankCandidates(ctx context.Context, origin geo.Point) ([]candidate, error) {
	pool, err := s.candidatePool(ctx, origin)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(pool))
	for _, c := range pool {
		if !dispatchable(c) {
			continue
		}
		d := geo.DistanceKm(c.Location.Point, origin)
		if d > s.cfg.MaxPickupDistanceKm {
			continue
		}
		candidates = append(candidates, candidate{courier: c, distanceKm: d})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].courier.PriorityScore != candidates[j].courier.PriorityScore {
			return candidates[i].courier.PriorityScore < candidates[j].courier.PriorityScore
		}
		return candidates[i].distanceKm < candidates[j].distanceKm
	})
	return candidates, nil
}

func (s *Service) candidatePool(ctx context.Context, origin geo.Point) ([]*domain.Courier, error) {
	if s.index != nil {
		ids, err := s.index.Nearby(ctx, origin, s.cfg.MaxPickupDistanceKm, nearbyLimit)
		if err != nil {
			s.log.Warn("geo index lookup failed, falling back to scan", logx.Any("error", err))
		} else if len(ids) > 0 {
			return s.couriers.GetByIDs(ctx, ids)
		}
	}
	return s.couriers.ListAvailable(ctx)
}

func dispatchable(c *domain.Courier) bool {
	return c != nil &&
		c.Status == domain.CourierOnline &&
		c.ActiveOrderID == nil &&
		c.Eligible &&
		c.Location != nil
}

// escalate moves an attempt-exhausted order to NO_COURIER_AVAILABLE.
func (s *Service) escalate(ctx context.Context, orderID string) (Result, error) {
	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		cur, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if cur == nil || cur.Status != domain.OrderPending || cur.AttemptCount < s.cfg.MaxAttempts {
			return nil
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, domain.OrderNoCourierAvailable); err != nil {
			return err
		}
		return tx.InsertEvent(ctx, &domain.Event{
			OrderID:   &orderID,
			CreatedAt: s.now(),
			Payload: domain.StatusChangedPayload{
				Entity: "order",
				From:   string(domain.OrderPending),
				To:     string(domain.OrderNoCourierAvailable),
			},
		})
	})
	if err != nil {
		return Result{}, err
	}

	s.log.Warn("order exhausted offer attempts", logx.String("order_id", orderID))
	return Result{Outcome: OutcomeNoCourierAvailable}, nil
}

func (s *Service) notifyOffer(ctx context.Context, offer *domain.Offer, o *domain.Order) {
	err := s.notifier.Notify(ctx, offer.CourierID, notify.Message{
		Type:       notify.TypeOffer,
		OfferID:    offer.ID,
		OrderID:    offer.OrderID,
		DistanceKm: offer.DistanceToPickupKm,
		Price:      o.Price,
		ExpiresAt:  offer.ExpiresAt,
	})
	if err != nil {
		s.log.Warn("offer notification failed",
			logx.Int64("courier_id", offer.CourierID),
			logx.String("offer_id", offer.ID),
			logx.Any("error", err),
		)
	}
}
