// Package batch groups nearby pending orders: automatic proximity-based
// suggestions and manual confirmed batch creation.
package batch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/config"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
)

//go:generate mockgen -source=service.go -destination=mocks/service.go -package=mocks

// OrderLister reads the unbatched pending pool.
type OrderLister interface {
	ListUnbatchedPending(ctx context.Context, limit int) ([]*domain.Order, error)
}

// suggestionPoolCap bounds how many recent orders one suggestion round sees.
const suggestionPoolCap = 50

// Suggestion is one proposed group of orders for a single courier.
type Suggestion struct {
	Orders          []*domain.Order
	TotalPrice      int64
	TotalDistanceKm float64
	MeanPairwiseKm  float64
}

// EligibilityError reports a createBatch request where some orders were no
// longer groupable; nothing was mutated.
type EligibilityError struct {
	Requested int
	Eligible  int
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("only %d of %d requested orders are eligible for batching", e.Eligible, e.Requested)
}

// Service implements proximity clustering over the pending order pool.
type Service struct {
	runner dispatchtx.Runner
	orders OrderLister
	cfg    config.Routing
	log    logx.Logger
	now    func() time.Time
}

// NewService creates a batch Service.
func NewService(runner dispatchtx.Runner, orders OrderLister, cfg config.Routing, log logx.Logger) *Service {
	return &Service{
		runner: runner,
		orders: orders,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// SuggestBatches greedily groups recent unbatched pending orders whose
// origins sit within the group distance of every other member. Groups of
// one are dropped; the result is sorted by size, largest first.
func (s *Service) SuggestBatches(ctx context.Context) ([]Suggestion, error) {
	pool, err := s.orders.ListUnbatchedPending(ctx, suggestionPoolCap)
	if err != nil {
		return nil, err
	}
	// oldest first, so groups seed from the longest-waiting orders
	sort.Slice(pool, func(i, j int) bool { return pool[i].CreatedAt.Before(pool[j].CreatedAt) })

	used := make([]bool, len(pool))
	var suggestions []Suggestion

	for i, seed := range pool {
		if used[i] || !seed.Geocoded() {
			continue
		}
		group := []*domain.Order{seed}
		used[i] = true

		for j := i + 1; j < len(pool); j++ {
			cand := pool[j]
			if used[j] || !cand.Geocoded() {
				continue
			}
			if s.fitsGroup(group, cand) {
				group = append(group, cand)
				used[j] = true
			}
		}

		if len(group) < 2 {
			continue
		}
		suggestions = append(suggestions, s.summarize(group))
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return len(suggestions[i].Orders) > len(suggestions[j].Orders)
	})
	return suggestions, nil
}

// fitsGroup requires the candidate's origin to be within the group distance
// of every member's origin, not just the seed's. This blocks chained drift
// where each link is close but the ends are far apart.
func (s *Service) fitsGroup(group []*domain.Order, cand *domain.Order) bool {
	for _, member := range group {
		if geo.DistanceKm(*member.Origin, *cand.Origin) > s.cfg.MaxGroupDistanceKm {
			return false
		}
	}
	return true
}

func (s *Service) summarize(group []*domain.Order) Suggestion {
	sum := Suggestion{Orders: group}
	for _, o := range group {
		sum.TotalPrice += o.Price
		sum.TotalDistanceKm += o.DistanceKm
	}

	var pairKm float64
	pairs := 0
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			pairKm += geo.DistanceKm(*group[i].Origin, *group[j].Origin)
			pairs++
		}
	}
	if pairs > 0 {
		sum.MeanPairwiseKm = pairKm / float64(pairs)
	}
	return sum
}

// CreateBatch assigns the given orders to one courier as a batch, all or
// nothing. The caller-supplied order of ids becomes the delivery sequence.
func (s *Service) CreateBatch(ctx context.Context, orderIDs []string, courierID int64) (string, error) {
	if len(orderIDs) < 2 {
		return "", fmt.Errorf("a batch needs at least two orders: %w", apperr.ErrInvalid)
	}
	seen := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		if _, dup := seen[id]; dup {
			return "", fmt.Errorf("duplicate order %s in batch: %w", id, apperr.ErrInvalid)
		}
		seen[id] = struct{}{}
	}

	batchID := uuid.NewString()
	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		c, err := tx.GetCourierForUpdate(ctx, courierID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("courier %d: %w", courierID, apperr.ErrNotFound)
		}
		if !c.Eligible {
			return fmt.Errorf("courier %d is not eligible: %w", courierID, apperr.ErrConflict)
		}

		orders := make([]*domain.Order, 0, len(orderIDs))
		eligible := 0
		for _, id := range orderIDs {
			o, err := tx.GetOrderForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if o != nil && (o.Status == domain.OrderPending || o.Status == domain.OrderAccepted) {
				eligible++
				orders = append(orders, o)
			}
		}
		if eligible != len(orderIDs) {
			return &EligibilityError{Requested: len(orderIDs), Eligible: eligible}
		}

		for seq, o := range orders {
			if err := tx.SetOrderBatch(ctx, o.ID, batchID, seq+1, courierID); err != nil {
				return err
			}
			if o.Status != domain.OrderAccepted {
				if err := tx.UpdateOrderStatus(ctx, o.ID, domain.OrderAccepted); err != nil {
					return err
				}
			}
		}

		return tx.InsertEvent(ctx, &domain.Event{
			CourierID: &courierID,
			CreatedAt: s.now(),
			Payload: domain.BatchCreatedPayload{
				BatchID:  batchID,
				OrderIDs: orderIDs,
			},
		})
	})
	if err != nil {
		return "", err
	}

	s.log.Info("batch created",
		logx.String("batch_id", batchID),
		logx.Int64("courier_id", courierID),
		logx.Int("orders", len(orderIDs)),
	)
	return batchID, nil
}
