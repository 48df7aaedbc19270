package domain

import "time"

// EventKind tags a dispatch audit event.
type EventKind string

// List of dispatch event kinds
const (
	EventOfferCreated  EventKind = "offer_created"
	EventOfferAccepted EventKind = "offer_accepted"
	EventOfferRejected EventKind = "offer_rejected"
	EventOfferTimedOut EventKind = "offer_timed_out"
	EventGPSFlagged    EventKind = "gps_flagged"
	EventStatusChanged EventKind = "status_changed"
	EventBatchCreated  EventKind = "batch_created"
)

// Event is a dispatch audit record. Payload is a tagged union: exactly one
// payload shape per kind, instead of a free-form blob.
type Event struct {
	ID        int64
	Kind      EventKind
	OrderID   *string
	CourierID *int64
	CreatedAt time.Time
	Payload   EventPayload
}

// EventPayload is implemented by exactly one struct per EventKind.
type EventPayload interface {
	eventKind() EventKind
}

// OfferCreatedPayload accompanies EventOfferCreated.
type OfferCreatedPayload struct {
	OfferID            string  `json:"offer_id"`
	AttemptNumber      int     `json:"attempt_number"`
	DistanceToPickupKm float64 `json:"distance_to_pickup_km"`
}

// OfferAcceptedPayload accompanies EventOfferAccepted.
type OfferAcceptedPayload struct {
	OfferID string `json:"offer_id"`
}

// OfferFailedPayload accompanies EventOfferRejected and EventOfferTimedOut.
type OfferFailedPayload struct {
	OfferID         string        `json:"offer_id"`
	Reason          FailureReason `json:"reason"`
	RejectionsToday int           `json:"rejections_today"`
	PriorityScore   int           `json:"priority_score"`
	AutoPaused      bool          `json:"auto_paused"`
}

// GPSFlaggedPayload accompanies EventGPSFlagged.
type GPSFlaggedPayload struct {
	SampleID   string  `json:"sample_id"`
	Reason     string  `json:"reason"`
	SpeedKmh   float64 `json:"speed_kmh"`
	DistanceKm float64 `json:"distance_km"`
	ElapsedSec float64 `json:"elapsed_sec"`
}

// StatusChangedPayload accompanies EventStatusChanged.
type StatusChangedPayload struct {
	Entity string `json:"entity"`
	From   string `json:"from"`
	To     string `json:"to"`
	Forced bool   `json:"forced,omitempty"`
}

// BatchCreatedPayload accompanies EventBatchCreated.
type BatchCreatedPayload struct {
	BatchID  string   `json:"batch_id"`
	OrderIDs []string `json:"order_ids"`
}

func (OfferCreatedPayload) eventKind() EventKind  { return EventOfferCreated }
func (OfferAcceptedPayload) eventKind() EventKind { return EventOfferAccepted }
func (p OfferFailedPayload) eventKind() EventKind {
	if p.Reason == FailureTimeout {
		return EventOfferTimedOut
	}
	return EventOfferRejected
}
func (GPSFlaggedPayload) eventKind() EventKind    { return EventGPSFlagged }
func (StatusChangedPayload) eventKind() EventKind { return EventStatusChanged }
func (BatchCreatedPayload) eventKind() EventKind  { return EventBatchCreated }

// KindOf returns the event kind for a payload.
func KindOf(p EventPayload) EventKind {
	return p.eventKind()
}
