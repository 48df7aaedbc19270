// Package routing scores en-route insertions: pending orders a traveling
// courier could take on without blowing their detour and time budgets.
package routing

import (
	"context"
	"fmt"
	"sort"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/config"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/repository"
)

//go:generate mockgen -source=service.go -destination=mocks/service.go -package=mocks

// CourierGetter loads a courier outside a transaction.
type CourierGetter interface {
	Get(ctx context.Context, id int64) (*domain.Courier, error)
}

// OrderSource reads the courier's active route and the pending pool.
type OrderSource interface {
	ListActiveByCourier(ctx context.Context, courierID int64) ([]*domain.Order, error)
	ListUnbatchedPending(ctx context.Context, limit int) ([]*domain.Order, error)
}

// Limits for one suggestion round.
const (
	candidatePoolCap = 50
	maxSuggestions   = 3
)

// Insertion is one suggested order with its computed detour cost.
type Insertion struct {
	Order     *domain.Order
	DetourKm  float64
	DetourMin float64
}

// Service computes insertion suggestions.
type Service struct {
	couriers CourierGetter
	orders   OrderSource
	cfg      config.Routing
	log      logx.Logger
}

// NewService creates a routing Service.
func NewService(couriers CourierGetter, orders OrderSource, cfg config.Routing, log logx.Logger) *Service {
	return &Service{
		couriers: couriers,
		orders:   orders,
		cfg:      cfg,
		log:      log,
	}
}

// SuggestInsertions returns up to three pending orders the courier could
// append to their current route, cheapest detour first. Disabled config
// short-circuits to an empty result.
func (s *Service) SuggestInsertions(ctx context.Context, courierID int64) ([]Insertion, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}

	c, err := s.couriers.Get(ctx, courierID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("courier %d: %w", courierID, apperr.ErrNotFound)
		}
		return nil, err
	}
	if c.Location == nil {
		return nil, fmt.Errorf("courier %d has no known position: %w", courierID, apperr.ErrInvalid)
	}

	active, err := s.orders.ListActiveByCourier(ctx, courierID)
	if err != nil {
		return nil, err
	}
	stops := routeStops(active)
	if len(stops) == 0 {
		// nothing in flight; plain distribution handles idle couriers
		return nil, nil
	}
	if len(active)+1 > s.cfg.MaxOrdersPerRoute {
		return nil, nil
	}

	course := geo.BearingDeg(c.Location.Point, stops[0])
	lastStop := stops[len(stops)-1]

	pending, err := s.orders.ListUnbatchedPending(ctx, candidatePoolCap)
	if err != nil {
		return nil, err
	}

	var suggestions []Insertion
	for _, cand := range pending {
		if cand.AssignedCourierID != nil || !cand.Geocoded() {
			continue
		}

		heading := geo.BearingDeg(c.Location.Point, *cand.Origin)
		if !geo.BearingWithinTolerance(course, heading, s.cfg.BearingToleranceDeg) {
			continue
		}

		detourKm := geo.DistanceKm(lastStop, *cand.Origin) + geo.DistanceKm(*cand.Origin, *cand.Destination)
		if detourKm > s.cfg.MaxDetourDistanceKm {
			continue
		}
		detourMin := detourKm/s.cfg.AvgSpeedKmh*60 + s.cfg.AvgDeliveryTime.Minutes()
		if detourMin > s.cfg.MaxAdditionalTime.Minutes() {
			continue
		}

		suggestions = append(suggestions, Insertion{
			Order:     cand,
			DetourKm:  detourKm,
			DetourMin: detourMin,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].DetourKm < suggestions[j].DetourKm
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions, nil
}

// routeStops flattens active orders into the points still to visit, in
// route order: pickup then dropoff for orders not yet picked up, dropoff
// only for those already in hand.
func routeStops(active []*domain.Order) []geo.Point {
	var stops []geo.Point
	for _, o := range active {
		if !o.Geocoded() {
			continue
		}
		if o.Status == domain.OrderAccepted {
			stops = append(stops, *o.Origin)
		}
		stops = append(stops, *o.Destination)
	}
	return stops
}
