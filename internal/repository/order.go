package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/domain"
)

// OrderRepo reads order rows outside transactions.
type OrderRepo struct {
	pool *pgxpool.Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Get returns the order or pgx.ErrNoRows.
func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListUnbatchedPending returns the newest geocoded pending orders not yet in
// a batch, up to limit.
func (r *OrderRepo) ListUnbatchedPending(ctx context.Context, limit int) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = $1 AND batch_id IS NULL AND origin_lat IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $2`,
		domain.OrderPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list unbatched pending orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListActiveByCourier returns the courier's in-flight orders in route order:
// batched orders by their position in the batch, then the rest by age.
func (r *OrderRepo) ListActiveByCourier(ctx context.Context, courierID int64) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE assigned_courier_id = $1 AND status = ANY($2)
		ORDER BY batch_order NULLS LAST, created_at`,
		courierID, []domain.OrderStatus{domain.OrderAccepted, domain.OrderPickedUp, domain.OrderInTransit})
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListRetryablePending returns geocoded pending orders with no live offer,
// oldest first, up to limit. The scheduler feeds these back to distribution.
func (r *OrderRepo) ListRetryablePending(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.status = $1 AND o.origin_lat IS NOT NULL AND NOT EXISTS (
			SELECT 1 FROM offers f
			WHERE f.order_id = o.id AND f.status = $2 AND f.expires_at > $3
		)
		ORDER BY o.created_at
		LIMIT $4`,
		domain.OrderPending, domain.OfferPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list retryable pending orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]*domain.Order, error) {
	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}
