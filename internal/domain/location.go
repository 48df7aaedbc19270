package domain

import (
	"time"

	"service-dispatch/internal/geo"
)

// LocationSample is one ingested GPS reading. Samples are append-only:
// created on every ingestion, never mutated, retained for audit.
type LocationSample struct {
	ID         string
	CourierID  int64
	OrderID    *string
	Point      geo.Point
	AccuracyM  float64
	SpeedKmh   float64
	HeadingDeg float64
	RecordedAt time.Time
	FakeGPS    bool
}

// IntegrityResult is the outcome of the GPS spoofing heuristic.
// A flagged sample is not an error: the call succeeds, the position update
// is suppressed and the sample is kept for audit.
type IntegrityResult struct {
	Fake   bool
	Reason string
}
