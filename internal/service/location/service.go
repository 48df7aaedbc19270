// Package location ingests courier GPS samples: every sample is kept for
// audit, but only samples passing the integrity filter move the courier's
// live position.
package location

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/config"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/repository"
)

// Input is one GPS reading reported by a courier device.
type Input struct {
	CourierID  int64
	Point      geo.Point
	AccuracyM  float64
	SpeedKmh   float64
	HeadingDeg float64
	RecordedAt time.Time
}

// Service applies the integrity filter and persists samples.
type Service struct {
	runner   dispatchtx.Runner
	couriers CourierGetter
	orders   OrderGetter
	index    GeoIndex
	fakeGPS  prometheus.Counter
	offers   config.Offers
	log      logx.Logger
	now      func() time.Time
}

// NewService creates a location Service. index may be nil when Redis is not
// configured.
func NewService(
	runner dispatchtx.Runner,
	couriers CourierGetter,
	orders OrderGetter,
	index GeoIndex,
	fakeGPS prometheus.Counter,
	offers config.Offers,
	log logx.Logger,
) *Service {
	return &Service{
		runner:   runner,
		couriers: couriers,
		orders:   orders,
		index:    index,
		fakeGPS:  fakeGPS,
		offers:   offers,
		log:      log,
		now:      time.Now,
	}
}

// Ingest runs one sample through the filter and persists the outcome in a
// single transaction. A flagged sample is not an error: the sample is stored
// with the flag, an integrity event is recorded and the live position stays
// untouched.
func (s *Service) Ingest(ctx context.Context, in Input) (domain.IntegrityResult, error) {
	if in.RecordedAt.IsZero() {
		in.RecordedAt = s.now()
	}

	var result domain.IntegrityResult
	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		c, err := tx.GetCourierForUpdate(ctx, in.CourierID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("courier %d: %w", in.CourierID, apperr.ErrNotFound)
		}

		prev := c.Location
		result = CheckSample(prev, in.Point, in.RecordedAt)

		sample := &domain.LocationSample{
			ID:         uuid.NewString(),
			CourierID:  c.ID,
			Point:      in.Point,
			AccuracyM:  in.AccuracyM,
			SpeedKmh:   in.SpeedKmh,
			HeadingDeg: in.HeadingDeg,
			RecordedAt: in.RecordedAt,
			FakeGPS:    result.Fake,
		}
		if c.Status.Traveling() {
			sample.OrderID = c.ActiveOrderID
		}
		if err := tx.InsertSample(ctx, sample); err != nil {
			return err
		}

		if result.Fake {
			payload := domain.GPSFlaggedPayload{
				SampleID: sample.ID,
				Reason:   result.Reason,
			}
			if prev != nil {
				payload.DistanceKm = geo.DistanceKm(prev.Point, in.Point)
				payload.ElapsedSec = in.RecordedAt.Sub(prev.UpdatedAt).Seconds()
				if payload.ElapsedSec > 0 {
					payload.SpeedKmh = payload.DistanceKm / payload.ElapsedSec * 3600
				}
			}
			return tx.InsertEvent(ctx, &domain.Event{
				CourierID: &c.ID,
				OrderID:   sample.OrderID,
				CreatedAt: s.now(),
				Payload:   payload,
			})
		}

		c.Location = &domain.Location{
			Point:     in.Point,
			AccuracyM: in.AccuracyM,
			UpdatedAt: in.RecordedAt,
		}
		return tx.UpdateCourier(ctx, c)
	})
	if err != nil {
		return domain.IntegrityResult{}, err
	}

	if result.Fake {
		s.fakeGPS.Inc()
		s.log.Warn("gps sample flagged",
			logx.Int64("courier_id", in.CourierID),
			logx.String("reason", result.Reason),
		)
		return result, nil
	}

	if s.index != nil {
		if err := s.index.Update(ctx, in.CourierID, in.Point); err != nil {
			s.log.Warn("geo index update failed",
				logx.Int64("courier_id", in.CourierID),
				logx.Any("error", err),
			)
		}
	}
	return result, nil
}

// Arrival describes how close a traveling courier is to their next stop.
type Arrival struct {
	Near       bool
	DistanceKm float64
}

// NearStop reports whether the courier is within the arrival radius of their
// current target: the order's origin while heading to pickup, its
// destination while delivering.
func (s *Service) NearStop(ctx context.Context, courierID int64) (Arrival, error) {
	c, err := s.couriers.Get(ctx, courierID)
	if err != nil {
		if repository.IsNotFound(err) {
			return Arrival{}, fmt.Errorf("courier %d: %w", courierID, apperr.ErrNotFound)
		}
		return Arrival{}, err
	}
	if !c.Status.Traveling() || c.ActiveOrderID == nil {
		return Arrival{}, fmt.Errorf("courier %d is not traveling: %w", courierID, apperr.ErrInvalid)
	}
	if c.Location == nil {
		return Arrival{}, fmt.Errorf("courier %d has no known position: %w", courierID, apperr.ErrInvalid)
	}

	o, err := s.orders.Get(ctx, *c.ActiveOrderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return Arrival{}, fmt.Errorf("order %s: %w", *c.ActiveOrderID, apperr.ErrNotFound)
		}
		return Arrival{}, err
	}

	target := o.Origin
	if c.Status == domain.CourierEnRouteDelivery {
		target = o.Destination
	}
	if target == nil {
		return Arrival{}, fmt.Errorf("order %s is not geocoded: %w", o.ID, apperr.ErrInvalid)
	}

	return Arrival{
		Near:       geo.WithinRadius(c.Location.Point, *target, s.offers.ArrivalRadiusMeters),
		DistanceKm: geo.DistanceKm(c.Location.Point, *target),
	}, nil
}
