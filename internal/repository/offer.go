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

// OfferRepo reads offer rows outside transactions.
type OfferRepo struct {
	pool *pgxpool.Pool
}

// NewOfferRepo creates a new OfferRepo.
func NewOfferRepo(pool *pgxpool.Pool) *OfferRepo {
	return &OfferRepo{pool: pool}
}

// Get returns the offer or pgx.ErrNoRows.
func (r *OfferRepo) Get(ctx context.Context, id string) (*domain.Offer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

// ListExpiredPending returns pending offers whose window closed before now,
// up to limit. The scheduler sweeps these into timeouts.
func (r *OfferRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Offer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+offerColumns+` FROM offers
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3`,
		domain.OfferPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired pending offers: %w", err)
	}
	defer rows.Close()

	var out []*domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}
	return out, nil
}
