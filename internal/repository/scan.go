package repository

import (
	"database/sql"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const courierColumns = `id, name, status, lat, lon, accuracy_m, location_updated_at,
	active_order_id, priority_score, rejections_today, rejections_reset_at, eligible`

func scanCourier(row rowScanner) (*domain.Courier, error) {
	var (
		c         domain.Courier
		lat, lon  sql.NullFloat64
		accuracy  sql.NullFloat64
		updatedAt sql.NullTime
		orderID   sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Status, &lat, &lon, &accuracy, &updatedAt,
		&orderID, &c.PriorityScore, &c.RejectionsToday, &c.RejectionsResetAt, &c.Eligible,
	)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lon.Valid {
		c.Location = &domain.Location{
			Point:     geo.Point{Lat: lat.Float64, Lon: lon.Float64},
			AccuracyM: accuracy.Float64,
			UpdatedAt: updatedAt.Time,
		}
	}
	if orderID.Valid {
		c.ActiveOrderID = &orderID.String
	}
	return &c, nil
}

const orderColumns = `id, status, origin_lat, origin_lon, dest_lat, dest_lon, price,
	distance_km, assigned_courier_id, batch_id, batch_order, attempt_count, created_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                    domain.Order
		originLat, originLon sql.NullFloat64
		destLat, destLon     sql.NullFloat64
		courierID            sql.NullInt64
		batchID              sql.NullString
		batchOrder           sql.NullInt32
	)
	err := row.Scan(
		&o.ID, &o.Status, &originLat, &originLon, &destLat, &destLon, &o.Price,
		&o.DistanceKm, &courierID, &batchID, &batchOrder, &o.AttemptCount, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if originLat.Valid && originLon.Valid {
		o.Origin = &geo.Point{Lat: originLat.Float64, Lon: originLon.Float64}
	}
	if destLat.Valid && destLon.Valid {
		o.Destination = &geo.Point{Lat: destLat.Float64, Lon: destLon.Float64}
	}
	if courierID.Valid {
		o.AssignedCourierID = &courierID.Int64
	}
	if batchID.Valid {
		o.BatchID = &batchID.String
	}
	if batchOrder.Valid {
		seq := int(batchOrder.Int32)
		o.BatchOrder = &seq
	}
	return &o, nil
}

const offerColumns = `id, order_id, courier_id, distance_to_pickup_km, attempt_number,
	offered_at, expires_at, status, failure_reason`

func scanOffer(row rowScanner) (*domain.Offer, error) {
	var o domain.Offer
	err := row.Scan(
		&o.ID, &o.OrderID, &o.CourierID, &o.DistanceToPickupKm, &o.AttemptNumber,
		&o.OfferedAt, &o.ExpiresAt, &o.Status, &o.FailureReason,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
