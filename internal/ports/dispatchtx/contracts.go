// Package dispatchtx defines the transactional persistence contracts shared
// by the engine services. Every state mutation in the engine happens through
// a Repository bound to one transaction, obtained via Runner.WithTx.
package dispatchtx

import (
	"context"

	"service-dispatch/internal/domain"
)

// Repository is the set of operations available inside one transaction.
// Get*ForUpdate methods lock the row (SELECT ... FOR UPDATE) and return nil
// without error when the row does not exist.
type Repository interface {
	GetCourierForUpdate(ctx context.Context, id int64) (*domain.Courier, error)
	UpdateCourier(ctx context.Context, c *domain.Courier) error

	GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
	AssignOrder(ctx context.Context, id string, courierID int64) error
	ClearOrderAssignment(ctx context.Context, id string) error
	SetOrderBatch(ctx context.Context, id, batchID string, seq int, courierID int64) error
	IncrementOrderAttempts(ctx context.Context, id string) (int, error)
	ResetOrderAttempts(ctx context.Context, id string) error

	GetOfferForUpdate(ctx context.Context, id string) (*domain.Offer, error)
	// InsertOfferIfNone inserts the offer only if no pending unexpired offer
	// exists for the same order, and reports whether the insert happened.
	InsertOfferIfNone(ctx context.Context, o *domain.Offer) (bool, error)
	UpdateOfferStatus(ctx context.Context, id string, status domain.OfferStatus, reason domain.FailureReason) error
	// ExpirePendingOffers flips every other pending offer for the order to
	// expired. Defensive: the uniqueness invariant should leave none.
	ExpirePendingOffers(ctx context.Context, orderID, exceptOfferID string) (int64, error)

	InsertSample(ctx context.Context, s *domain.LocationSample) error
	InsertEvent(ctx context.Context, e *domain.Event) error
}

// Runner opens a transaction and executes fn within it.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
