//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

const schema = `
CREATE TABLE couriers (
	id                  BIGINT PRIMARY KEY,
	name                TEXT NOT NULL,
	status              TEXT NOT NULL,
	lat                 DOUBLE PRECISION,
	lon                 DOUBLE PRECISION,
	accuracy_m          DOUBLE PRECISION,
	location_updated_at TIMESTAMPTZ,
	active_order_id     TEXT,
	priority_score      INT NOT NULL DEFAULT 0,
	rejections_today    INT NOT NULL DEFAULT 0,
	rejections_reset_at TIMESTAMPTZ NOT NULL,
	eligible            BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE orders (
	id                  TEXT PRIMARY KEY,
	status              TEXT NOT NULL,
	origin_lat          DOUBLE PRECISION,
	origin_lon          DOUBLE PRECISION,
	dest_lat            DOUBLE PRECISION,
	dest_lon            DOUBLE PRECISION,
	price               BIGINT NOT NULL DEFAULT 0,
	distance_km         DOUBLE PRECISION NOT NULL DEFAULT 0,
	assigned_courier_id BIGINT,
	batch_id            TEXT,
	batch_order         INT,
	attempt_count       INT NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE offers (
	id                    TEXT PRIMARY KEY,
	order_id              TEXT NOT NULL,
	courier_id            BIGINT NOT NULL,
	distance_to_pickup_km DOUBLE PRECISION NOT NULL,
	attempt_number        INT NOT NULL,
	offered_at            TIMESTAMPTZ NOT NULL,
	expires_at            TIMESTAMPTZ NOT NULL,
	status                TEXT NOT NULL,
	failure_reason        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE location_samples (
	id          TEXT PRIMARY KEY,
	courier_id  BIGINT NOT NULL,
	order_id    TEXT,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	accuracy_m  DOUBLE PRECISION NOT NULL,
	speed_kmh   DOUBLE PRECISION NOT NULL,
	heading_deg DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	fake_gps    BOOLEAN NOT NULL
);

CREATE TABLE dispatch_events (
	id         BIGSERIAL PRIMARY KEY,
	kind       TEXT NOT NULL,
	order_id   TEXT,
	courier_id BIGINT,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("dispatch_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)
	return pool
}

func seedCourier(t *testing.T, pool *pgxpool.Pool, id int64, status domain.CourierStatus) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO couriers (id, name, status, lat, lon, accuracy_m, location_updated_at, rejections_reset_at)
		VALUES ($1, $2, $3, 43.238949, 76.889709, 5, now(), now())`,
		id, "courier", status)
	require.NoError(t, err)
}

func seedOrder(t *testing.T, pool *pgxpool.Pool, id string, status domain.OrderStatus) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO orders (id, status, origin_lat, origin_lon, dest_lat, dest_lon, price, distance_km)
		VALUES ($1, $2, 43.24, 76.89, 43.25, 76.95, 1500, 5.2)`,
		id, status)
	require.NoError(t, err)
}

func TestDispatchRepo_OfferGuard(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := NewDispatchRepo(pool)

	seedOrder(t, pool, "ord-1", domain.OrderPending)
	now := time.Now()

	offer := func(id string, courierID int64) *domain.Offer {
		return &domain.Offer{
			ID:                 id,
			OrderID:            "ord-1",
			CourierID:          courierID,
			DistanceToPickupKm: 1.2,
			AttemptNumber:      1,
			OfferedAt:          now,
			ExpiresAt:          now.Add(time.Minute),
			Status:             domain.OfferPending,
		}
	}

	err := repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		inserted, err := tx.InsertOfferIfNone(ctx, offer("off-1", 1))
		require.NoError(t, err)
		require.True(t, inserted)
		return nil
	})
	require.NoError(t, err)

	// second live offer for the same order must be refused
	err = repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		inserted, err := tx.InsertOfferIfNone(ctx, offer("off-2", 2))
		require.NoError(t, err)
		require.False(t, inserted)
		return nil
	})
	require.NoError(t, err)

	// once the first offer is closed the order can be offered again
	err = repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		require.NoError(t, tx.UpdateOfferStatus(ctx, "off-1", domain.OfferRejected, domain.FailureRejected))
		return nil
	})
	require.NoError(t, err)

	err = repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		inserted, err := tx.InsertOfferIfNone(ctx, offer("off-3", 2))
		require.NoError(t, err)
		require.True(t, inserted)
		return nil
	})
	require.NoError(t, err)
}

func TestDispatchRepo_RollbackOnError(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := NewDispatchRepo(pool)

	seedOrder(t, pool, "ord-1", domain.OrderPending)

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		require.NoError(t, tx.UpdateOrderStatus(ctx, "ord-1", domain.OrderCancelled))
		return boom
	})
	require.ErrorIs(t, err, boom)

	o, err := NewOrderRepo(pool).Get(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderPending, o.Status)
}

func TestDispatchRepo_CourierRoundTrip(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := NewDispatchRepo(pool)

	seedCourier(t, pool, 7, domain.CourierOnline)

	err := repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		c, err := tx.GetCourierForUpdate(ctx, 7)
		require.NoError(t, err)
		require.NotNil(t, c)
		require.NotNil(t, c.Location)

		c.Status = domain.CourierOffline
		c.Location = nil
		c.PriorityScore = 30
		return tx.UpdateCourier(ctx, c)
	})
	require.NoError(t, err)

	c, err := NewCourierRepo(pool).Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, domain.CourierOffline, c.Status)
	require.Nil(t, c.Location)
	require.Equal(t, 30, c.PriorityScore)

	missing := repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		c, err := tx.GetCourierForUpdate(ctx, 999)
		require.NoError(t, err)
		require.Nil(t, c)
		return nil
	})
	require.NoError(t, missing)
}

func TestOrderRepo_Lists(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	seedOrder(t, pool, "ord-1", domain.OrderPending)
	seedOrder(t, pool, "ord-2", domain.OrderPending)
	seedOrder(t, pool, "ord-3", domain.OrderDelivered)

	repo := NewOrderRepo(pool)

	pending, err := repo.ListUnbatchedPending(ctx, 50)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	retryable, err := repo.ListRetryablePending(ctx, time.Now(), 100)
	require.NoError(t, err)
	require.Len(t, retryable, 2)

	// a live offer takes an order out of the retry set
	dispatch := NewDispatchRepo(pool)
	err = dispatch.WithTx(ctx, func(tx dispatchtx.Repository) error {
		_, err := tx.InsertOfferIfNone(ctx, &domain.Offer{
			ID: "off-1", OrderID: "ord-1", CourierID: 1,
			OfferedAt: time.Now(), ExpiresAt: time.Now().Add(time.Minute),
			Status: domain.OfferPending,
		})
		return err
	})
	require.NoError(t, err)

	retryable, err = repo.ListRetryablePending(ctx, time.Now(), 100)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	require.Equal(t, "ord-2", retryable[0].ID)
}

func TestEventRepo_ListByOrder(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	orderID := "ord-1"
	seedOrder(t, pool, orderID, domain.OrderPending)

	dispatch := NewDispatchRepo(pool)
	err := dispatch.WithTx(ctx, func(tx dispatchtx.Repository) error {
		return tx.InsertEvent(ctx, &domain.Event{
			OrderID:   &orderID,
			CreatedAt: time.Now(),
			Payload:   domain.OfferCreatedPayload{OfferID: "off-1", AttemptNumber: 1, DistanceToPickupKm: 1.2},
		})
	})
	require.NoError(t, err)

	events, err := NewEventRepo(pool).ListByOrder(ctx, orderID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.EventOfferCreated, events[0].Kind)
	require.JSONEq(t, `{"offer_id":"off-1","attempt_number":1,"distance_to_pickup_km":1.2}`, string(events[0].Payload))
}
