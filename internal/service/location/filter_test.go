package location

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

func TestCheckSample(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	origin := geo.Point{Lat: 43.238949, Lon: 76.889709}
	prev := &domain.Location{Point: origin, UpdatedAt: base}

	// ~1.1 km north of origin
	nearby := geo.Point{Lat: 43.248949, Lon: 76.889709}
	// ~55 km away
	farAway := geo.Point{Lat: 43.738949, Lon: 76.889709}

	tests := []struct {
		name   string
		prev   *domain.Location
		next   geo.Point
		at     time.Time
		fake   bool
		reason string
	}{
		{
			name: "cold start never fake",
			prev: nil,
			next: farAway,
			at:   base.Add(time.Second),
		},
		{
			name: "sub-second delta never fake",
			prev: prev,
			next: farAway,
			at:   base.Add(500 * time.Millisecond),
		},
		{
			name: "plausible movement",
			prev: prev,
			next: nearby,
			at:   base.Add(2 * time.Minute),
		},
		{
			name:   "impossible speed",
			prev:   prev,
			next:   farAway,
			at:     base.Add(time.Minute),
			fake:   true,
			reason: ReasonImpossibleSpeed,
		},
		{
			name:   "teleport in a short window",
			prev:   prev,
			next:   nearby,
			at:     base.Add(2 * time.Second),
			fake:   true,
			reason: ReasonImpossibleSpeed,
		},
		{
			name: "same point",
			prev: prev,
			next: origin,
			at:   base.Add(2 * time.Second),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := CheckSample(tt.prev, tt.next, tt.at)
			require.Equal(t, tt.fake, res.Fake)
			require.Equal(t, tt.reason, res.Reason)
		})
	}
}
