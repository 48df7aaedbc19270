package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

// DispatchRepo runs engine mutations inside database transactions.
type DispatchRepo struct {
	pool *pgxpool.Pool
}

// NewDispatchRepo creates a new DispatchRepo.
func NewDispatchRepo(pool *pgxpool.Pool) *DispatchRepo {
	return &DispatchRepo{pool: pool}
}

// WithTx opens a transaction, runs fn against it and commits; any error from
// fn rolls the transaction back and is returned unchanged.
func (r *DispatchRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&txRepo{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) GetCourierForUpdate(ctx context.Context, id int64) (*domain.Courier, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+courierColumns+` FROM couriers WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCourier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get courier for update: %w", err)
	}
	return c, nil
}

func (r *txRepo) UpdateCourier(ctx context.Context, c *domain.Courier) error {
	var (
		lat, lon, accuracy *float64
		updatedAt          *time.Time
	)
	if c.Location != nil {
		lat = &c.Location.Point.Lat
		lon = &c.Location.Point.Lon
		accuracy = &c.Location.AccuracyM
		updatedAt = &c.Location.UpdatedAt
	}

	_, err := r.tx.Exec(ctx, `
		UPDATE couriers SET
			status = $2, lat = $3, lon = $4, accuracy_m = $5, location_updated_at = $6,
			active_order_id = $7, priority_score = $8, rejections_today = $9,
			rejections_reset_at = $10, eligible = $11
		WHERE id = $1`,
		c.ID, c.Status, lat, lon, accuracy, updatedAt,
		c.ActiveOrderID, c.PriorityScore, c.RejectionsToday,
		c.RejectionsResetAt, c.Eligible,
	)
	if err != nil {
		return fmt.Errorf("update courier: %w", err)
	}
	return nil
}

func (r *txRepo) GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order for update: %w", err)
	}
	return o, nil
}

func (r *txRepo) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *txRepo) AssignOrder(ctx context.Context, id string, courierID int64) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE orders SET assigned_courier_id = $2 WHERE id = $1`, id, courierID)
	if err != nil {
		return fmt.Errorf("assign order: %w", err)
	}
	return nil
}

func (r *txRepo) ClearOrderAssignment(ctx context.Context, id string) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE orders SET assigned_courier_id = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear order assignment: %w", err)
	}
	return nil
}

func (r *txRepo) SetOrderBatch(ctx context.Context, id, batchID string, seq int, courierID int64) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE orders SET batch_id = $2, batch_order = $3, assigned_courier_id = $4
		WHERE id = $1`,
		id, batchID, seq, courierID)
	if err != nil {
		return fmt.Errorf("set order batch: %w", err)
	}
	return nil
}

func (r *txRepo) IncrementOrderAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.tx.QueryRow(ctx, `
		UPDATE orders SET attempt_count = attempt_count + 1
		WHERE id = $1
		RETURNING attempt_count`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment order attempts: %w", err)
	}
	return attempts, nil
}

func (r *txRepo) ResetOrderAttempts(ctx context.Context, id string) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET attempt_count = 0 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset order attempts: %w", err)
	}
	return nil
}

func (r *txRepo) GetOfferForUpdate(ctx context.Context, id string) (*domain.Offer, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get offer for update: %w", err)
	}
	return o, nil
}

// InsertOfferIfNone enforces the one-pending-offer-per-order invariant at the
// database level: the insert is guarded against a concurrent live offer.
func (r *txRepo) InsertOfferIfNone(ctx context.Context, o *domain.Offer) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
		INSERT INTO offers (id, order_id, courier_id, distance_to_pickup_km,
			attempt_number, offered_at, expires_at, status, failure_reason)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM offers
			WHERE order_id = $2 AND status = $8 AND expires_at > $6
		)`,
		o.ID, o.OrderID, o.CourierID, o.DistanceToPickupKm,
		o.AttemptNumber, o.OfferedAt, o.ExpiresAt, domain.OfferPending, domain.FailureNone,
	)
	if err != nil {
		return false, fmt.Errorf("insert offer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepo) UpdateOfferStatus(ctx context.Context, id string, status domain.OfferStatus, reason domain.FailureReason) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE offers SET status = $2, failure_reason = $3 WHERE id = $1`,
		id, status, reason)
	if err != nil {
		return fmt.Errorf("update offer status: %w", err)
	}
	return nil
}

func (r *txRepo) ExpirePendingOffers(ctx context.Context, orderID, exceptOfferID string) (int64, error) {
	tag, err := r.tx.Exec(ctx, `
		UPDATE offers SET status = $3, failure_reason = $4
		WHERE order_id = $1 AND id <> $2 AND status = $5`,
		orderID, exceptOfferID, domain.OfferExpired, domain.FailureTimeout, domain.OfferPending)
	if err != nil {
		return 0, fmt.Errorf("expire pending offers: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *txRepo) InsertSample(ctx context.Context, s *domain.LocationSample) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO location_samples (id, courier_id, order_id, lat, lon,
			accuracy_m, speed_kmh, heading_deg, recorded_at, fake_gps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.CourierID, s.OrderID, s.Point.Lat, s.Point.Lon,
		s.AccuracyM, s.SpeedKmh, s.HeadingDeg, s.RecordedAt, s.FakeGPS,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (r *txRepo) InsertEvent(ctx context.Context, e *domain.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if e.Kind == "" {
		e.Kind = domain.KindOf(e.Payload)
	}

	err = r.tx.QueryRow(ctx, `
		INSERT INTO dispatch_events (kind, order_id, courier_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		e.Kind, e.OrderID, e.CourierID, payload, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
