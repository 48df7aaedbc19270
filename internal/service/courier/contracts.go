package courier

//go:generate mockgen -source=contracts.go -destination=mocks/contracts.go -package=mocks

import "context"

// GeoIndex removes couriers from the candidate lookup index when they stop
// being dispatchable.
type GeoIndex interface {
	Remove(ctx context.Context, courierID int64) error
}
