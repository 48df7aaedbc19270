package domain

import (
	"fmt"
	"time"

	"service-dispatch/internal/geo"
)

// CourierStatus represents the status of a courier.
type CourierStatus string

// List of possible courier statuses
const (
	CourierOffline         CourierStatus = "offline"
	CourierOnline          CourierStatus = "online"
	CourierEnRoutePickup   CourierStatus = "en_route_pickup"
	CourierEnRouteDelivery CourierStatus = "en_route_delivery"
	CourierEmergency       CourierStatus = "emergency"
)

// Location is a courier's last accepted position.
type Location struct {
	Point     geo.Point
	AccuracyM float64
	UpdatedAt time.Time
}

// Courier represents a delivery courier.
// Location is nil until the first accepted GPS sample and is cleared when
// the courier goes offline. ActiveOrderID is set only while the courier is
// traveling with an order (or in emergency with one).
type Courier struct {
	ID                int64
	Name              string
	Status            CourierStatus
	Location          *Location
	ActiveOrderID     *string
	PriorityScore     int
	RejectionsToday   int
	RejectionsResetAt time.Time
	Eligible          bool
}

// CourierTransitions is the courier state flow as a single auditable table.
var CourierTransitions = map[CourierStatus][]CourierStatus{
	CourierOffline:         {CourierOnline},
	CourierOnline:          {CourierOffline, CourierEnRoutePickup, CourierEmergency},
	CourierEnRoutePickup:   {CourierEnRouteDelivery, CourierOnline, CourierEmergency},
	CourierEnRouteDelivery: {CourierOnline, CourierEmergency},
	CourierEmergency:       {CourierOnline, CourierOffline},
}

// CanTransition reports whether the table allows moving from s to target.
func (s CourierStatus) CanTransition(target CourierStatus) bool {
	for _, next := range CourierTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Valid checks if the CourierStatus is valid.
func (s CourierStatus) Valid() bool {
	_, ok := CourierTransitions[s]
	return ok
}

// Traveling reports whether the courier is actively moving with an order.
func (s CourierStatus) Traveling() bool {
	return s == CourierEnRoutePickup || s == CourierEnRouteDelivery
}

// InvalidTransitionError names the current and requested states of a
// rejected transition.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition from %q to %q", e.Entity, e.From, e.To)
}
