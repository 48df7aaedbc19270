package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/domain"
)

// CourierRepo reads courier rows outside transactions.
type CourierRepo struct {
	pool *pgxpool.Pool
}

// NewCourierRepo creates a new CourierRepo.
func NewCourierRepo(pool *pgxpool.Pool) *CourierRepo {
	return &CourierRepo{pool: pool}
}

// Get returns the courier or pgx.ErrNoRows.
func (r *CourierRepo) Get(ctx context.Context, id int64) (*domain.Courier, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+courierColumns+` FROM couriers WHERE id = $1`, id)
	c, err := scanCourier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get courier: %w", err)
	}
	return c, nil
}

// ListAvailable returns couriers that can currently receive offers:
// online, not carrying an order, eligible and with a known position.
func (r *CourierRepo) ListAvailable(ctx context.Context) ([]*domain.Courier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+courierColumns+` FROM couriers
		WHERE status = $1 AND active_order_id IS NULL AND eligible AND lat IS NOT NULL`,
		domain.CourierOnline)
	if err != nil {
		return nil, fmt.Errorf("list available couriers: %w", err)
	}
	defer rows.Close()

	return collectCouriers(rows)
}

// GetByIDs returns the couriers with the given ids, skipping missing ones.
func (r *CourierRepo) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Courier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+courierColumns+` FROM couriers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get couriers by ids: %w", err)
	}
	defer rows.Close()

	return collectCouriers(rows)
}

func collectCouriers(rows pgx.Rows) ([]*domain.Courier, error) {
	var out []*domain.Courier
	for rows.Next() {
		c, err := scanCourier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan courier: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate couriers: %w", err)
	}
	return out, nil
}
