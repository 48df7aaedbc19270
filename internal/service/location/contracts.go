package location

//go:generate mockgen -source=contracts.go -destination=mocks/contracts.go -package=mocks

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

// GeoIndex mirrors the live courier position into the candidate lookup index.
type GeoIndex interface {
	Update(ctx context.Context, courierID int64, p geo.Point) error
}

// CourierGetter loads a courier outside a transaction.
type CourierGetter interface {
	Get(ctx context.Context, id int64) (*domain.Courier, error)
}

// OrderGetter loads an order outside a transaction.
type OrderGetter interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
}
