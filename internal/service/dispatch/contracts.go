package dispatch

//go:generate mockgen -source=contracts.go -destination=mocks/contracts.go -package=mocks

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/notify"
)

// Notifier pushes dispatch messages to couriers, best effort.
type Notifier interface {
	Notify(ctx context.Context, courierID int64, msg notify.Message) error
}

// CandidateIndex narrows the candidate pool by proximity before the
// database recheck. Implementations may be stale; dispatch re-verifies.
type CandidateIndex interface {
	Nearby(ctx context.Context, p geo.Point, radiusKm float64, limit int) ([]int64, error)
	Remove(ctx context.Context, courierID int64) error
}

// CourierSource reads dispatchable couriers outside transactions.
type CourierSource interface {
	ListAvailable(ctx context.Context) ([]*domain.Courier, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.Courier, error)
}

// OrderSource reads orders outside transactions.
type OrderSource interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListRetryablePending(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)
}

// OfferSource reads offers outside transactions.
type OfferSource interface {
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Offer, error)
}

// OrderTransitioner applies order status transitions; consumed by the
// order-event processor.
type OrderTransitioner interface {
	Transition(ctx context.Context, orderID string, target domain.OrderStatus, actor domain.Actor) (*domain.Order, error)
}
