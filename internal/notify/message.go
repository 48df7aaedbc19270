// Package notify pushes dispatch notifications to couriers. A websocket
// session is tried first; couriers without a live session get the message
// through the notification topic instead.
package notify

import "time"

// Message kinds pushed to couriers.
const (
	TypeOffer          = "offer"
	TypeOfferCancelled = "offer_cancelled"
	TypeOrderUpdate    = "order_update"
)

// Message is one courier-facing notification.
type Message struct {
	Type       string    `json:"type"`
	OfferID    string    `json:"offer_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	DistanceKm float64   `json:"distance_km,omitempty"`
	Price      int64     `json:"price,omitempty"`
	Status     string    `json:"status,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
}
