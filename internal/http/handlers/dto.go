package handlers

import (
	"encoding/json"
	"time"
)

type statusRequest struct {
	Status string `json:"status"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
}

type locationRequest struct {
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	AccuracyM  float64    `json:"accuracy_m"`
	SpeedKmh   float64    `json:"speed_kmh"`
	HeadingDeg float64    `json:"heading_deg"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

type respondRequest struct {
	Accept bool     `json:"accept"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
}

type createBatchRequest struct {
	OrderIDs  []string `json:"order_ids"`
	CourierID int64    `json:"courier_id"`
}

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type courierDTO struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	Location        *pointDTO `json:"location,omitempty"`
	ActiveOrderID   *string   `json:"active_order_id,omitempty"`
	PriorityScore   int       `json:"priority_score"`
	RejectionsToday int       `json:"rejections_today"`
	Eligible        bool      `json:"eligible"`
}

type orderDTO struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	Origin            *pointDTO `json:"origin,omitempty"`
	Destination       *pointDTO `json:"destination,omitempty"`
	Price             int64     `json:"price"`
	DistanceKm        float64   `json:"distance_km"`
	AssignedCourierID *int64    `json:"assigned_courier_id,omitempty"`
	BatchID           *string   `json:"batch_id,omitempty"`
	BatchOrder        *int      `json:"batch_order,omitempty"`
	AttemptCount      int       `json:"attempt_count"`
}

type offerDTO struct {
	ID                 string    `json:"id"`
	OrderID            string    `json:"order_id"`
	CourierID          int64     `json:"courier_id"`
	DistanceToPickupKm float64   `json:"distance_to_pickup_km"`
	AttemptNumber      int       `json:"attempt_number"`
	OfferedAt          time.Time `json:"offered_at"`
	ExpiresAt          time.Time `json:"expires_at"`
	Status             string    `json:"status"`
}

type distributeResponse struct {
	Outcome string    `json:"outcome"`
	Offer   *offerDTO `json:"offer,omitempty"`
}

type respondResponse struct {
	Outcome    string `json:"outcome"`
	AutoPaused bool   `json:"auto_paused"`
}

type ingestResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

type arrivalResponse struct {
	Near       bool    `json:"near"`
	DistanceKm float64 `json:"distance_km"`
}

type suggestionDTO struct {
	OrderIDs        []string `json:"order_ids"`
	TotalPrice      int64    `json:"total_price"`
	TotalDistanceKm float64  `json:"total_distance_km"`
	MeanPairwiseKm  float64  `json:"mean_pairwise_km"`
}

type insertionDTO struct {
	Order     orderDTO `json:"order"`
	DetourKm  float64  `json:"detour_km"`
	DetourMin float64  `json:"detour_min"`
}

type eventDTO struct {
	ID        int64           `json:"id"`
	Kind      string          `json:"kind"`
	CourierID *int64          `json:"courier_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
