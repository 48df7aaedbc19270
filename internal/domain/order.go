package domain

import (
	"time"

	"service-dispatch/internal/geo"
)

// OrderStatus represents the status of an order.
type OrderStatus string

// List of possible order statuses
const (
	OrderAwaitingPayment    OrderStatus = "awaiting_payment"
	OrderPending            OrderStatus = "pending"
	OrderAccepted           OrderStatus = "accepted"
	OrderPickedUp           OrderStatus = "picked_up"
	OrderInTransit          OrderStatus = "in_transit"
	OrderDelivered          OrderStatus = "delivered"
	OrderCancelled          OrderStatus = "cancelled"
	OrderNoCourierAvailable OrderStatus = "no_courier_available"
)

// Order represents a delivery order.
// Origin/Destination are nil until geocoded. BatchID and BatchOrder are
// set together when the order joins a batch. AttemptCount tracks how many
// offers have been made for this order across distribution rounds.
type Order struct {
	ID                string
	Status            OrderStatus
	Origin            *geo.Point
	Destination       *geo.Point
	Price             int64
	DistanceKm        float64
	AssignedCourierID *int64
	BatchID           *string
	BatchOrder        *int
	AttemptCount      int
	CreatedAt         time.Time
}

// Geocoded reports whether both endpoints of the order are known.
func (o *Order) Geocoded() bool {
	return o.Origin != nil && o.Destination != nil
}

// OrderTransitions is the order state flow as a single auditable table.
// DELIVERED and CANCELLED are terminal.
var OrderTransitions = map[OrderStatus][]OrderStatus{
	OrderAwaitingPayment:    {OrderPending, OrderCancelled},
	OrderPending:            {OrderCancelled, OrderNoCourierAvailable, OrderAccepted},
	OrderAccepted:           {OrderPickedUp, OrderCancelled},
	OrderPickedUp:           {OrderInTransit, OrderCancelled},
	OrderInTransit:          {OrderDelivered, OrderCancelled},
	OrderDelivered:          {},
	OrderCancelled:          {},
	OrderNoCourierAvailable: {OrderPending},
}

// CanTransition reports whether the table allows moving from s to target.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, next := range OrderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Valid checks if the OrderStatus is valid.
func (s OrderStatus) Valid() bool {
	_, ok := OrderTransitions[s]
	return ok
}

// Actor identifies who requests an order transition.
type Actor string

// Actors ordered by privilege. Admins may override the transition table;
// clients may additionally cancel only before a courier is involved.
const (
	ActorClient Actor = "client"
	ActorSystem Actor = "system"
	ActorAdmin  Actor = "admin"
)
