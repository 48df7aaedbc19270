package domain

import "time"

// OfferStatus represents the status of an offer.
type OfferStatus string

// List of possible offer statuses
const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	OfferExpired  OfferStatus = "expired"
)

// FailureReason records why an offer did not end in acceptance.
type FailureReason string

// List of possible failure reasons; empty means none.
const (
	FailureNone     FailureReason = ""
	FailureRejected FailureReason = "rejected"
	FailureTimeout  FailureReason = "timeout"
)

// Offer is a time-boxed proposal of one order to one courier.
// Invariant: for a given order, at most one offer is pending and unexpired
// at any instant; the repository enforces this with a guarded insert.
type Offer struct {
	ID                 string
	OrderID            string
	CourierID          int64
	DistanceToPickupKm float64
	AttemptNumber      int
	OfferedAt          time.Time
	ExpiresAt          time.Time
	Status             OfferStatus
	FailureReason      FailureReason
}

// Expired reports whether the offer's response window has closed.
func (o *Offer) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
