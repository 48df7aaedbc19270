package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/domain"
)

// EventRecord is the audit-trail read model: the payload stays raw JSON so
// callers can serve it without knowing every payload shape.
type EventRecord struct {
	ID        int64
	Kind      domain.EventKind
	OrderID   *string
	CourierID *int64
	Payload   json.RawMessage
	CreatedAt time.Time
}

// EventRepo reads the dispatch audit trail.
type EventRepo struct {
	pool *pgxpool.Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// ListByOrder returns the newest events for an order, up to limit.
func (r *EventRepo) ListByOrder(ctx context.Context, orderID string, limit int) ([]EventRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, order_id, courier_id, payload, created_at
		FROM dispatch_events
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events by order: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			e         EventRecord
			orderID   sql.NullString
			courierID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &orderID, &courierID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if orderID.Valid {
			e.OrderID = &orderID.String
		}
		if courierID.Valid {
			e.CourierID = &courierID.Int64
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
