package location

import (
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

// Spoofing heuristic thresholds.
const (
	maxPlausibleSpeedKmh = 200.0
	jumpDistanceKm       = 0.5
	jumpWindowSec        = 3.0
	minEvalElapsedSec    = 1.0
)

// Integrity flag reasons.
const (
	ReasonImpossibleSpeed = "impossible speed"
	ReasonPositionJump    = "position jump"
)

// CheckSample applies the spoofing heuristic to a new position against the
// courier's last accepted one. Cold starts and sub-second deltas are never
// flagged; otherwise the implied speed and displacement decide.
func CheckSample(prev *domain.Location, next geo.Point, recordedAt time.Time) domain.IntegrityResult {
	if prev == nil {
		return domain.IntegrityResult{}
	}

	elapsed := recordedAt.Sub(prev.UpdatedAt).Seconds()
	if elapsed < minEvalElapsedSec {
		return domain.IntegrityResult{}
	}

	distance := geo.DistanceKm(prev.Point, next)
	speed := distance / elapsed * 3600

	if speed > maxPlausibleSpeedKmh {
		return domain.IntegrityResult{Fake: true, Reason: ReasonImpossibleSpeed}
	}
	if distance > jumpDistanceKm && elapsed < jumpWindowSec {
		return domain.IntegrityResult{Fake: true, Reason: ReasonPositionJump}
	}
	return domain.IntegrityResult{}
}
