package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/testutil"
)

func TestTransition_TableEnforced(t *testing.T) {
	t.Parallel()

	store := testutil.NewStore()
	store.Orders["ord-1"] = &domain.Order{ID: "ord-1", Status: domain.OrderAwaitingPayment}
	svc := NewService(store, logx.Nop())

	o, err := svc.Transition(context.Background(), "ord-1", domain.OrderPending, domain.ActorSystem)
	require.NoError(t, err)
	require.Equal(t, domain.OrderPending, o.Status)

	_, err = svc.Transition(context.Background(), "ord-1", domain.OrderDelivered, domain.ActorSystem)
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "order", invalid.Entity)

	_, err = svc.Transition(context.Background(), "ord-1", "lost", domain.ActorSystem)
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = svc.Transition(context.Background(), "missing", domain.OrderPending, domain.ActorSystem)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTransition_AdminOverride(t *testing.T) {
	t.Parallel()

	store := testutil.NewStore()
	store.Orders["ord-1"] = &domain.Order{ID: "ord-1", Status: domain.OrderPending}
	svc := NewService(store, logx.Nop())

	o, err := svc.Transition(context.Background(), "ord-1", domain.OrderDelivered, domain.ActorAdmin)
	require.NoError(t, err)
	require.Equal(t, domain.OrderDelivered, o.Status)

	require.Len(t, store.Events, 1)
	payload, ok := store.Events[0].Payload.(domain.StatusChangedPayload)
	require.True(t, ok)
	require.True(t, payload.Forced)
}

func TestTransition_ClientCancelWindow(t *testing.T) {
	t.Parallel()

	courierID := int64(7)
	store := testutil.NewStore()
	store.Orders["ord-1"] = &domain.Order{ID: "ord-1", Status: domain.OrderPending}
	store.Orders["ord-2"] = &domain.Order{
		ID:                "ord-2",
		Status:            domain.OrderAccepted,
		AssignedCourierID: &courierID,
	}
	svc := NewService(store, logx.Nop())

	o, err := svc.Transition(context.Background(), "ord-1", domain.OrderCancelled, domain.ActorClient)
	require.NoError(t, err)
	require.Equal(t, domain.OrderCancelled, o.Status)

	// a courier is already en route; the client can no longer cancel
	_, err = svc.Transition(context.Background(), "ord-2", domain.OrderCancelled, domain.ActorClient)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestTransition_CancelFreesCourier(t *testing.T) {
	t.Parallel()

	courierID := int64(7)
	orderID := "ord-1"
	store := testutil.NewStore()
	store.Orders[orderID] = &domain.Order{
		ID:                orderID,
		Status:            domain.OrderAccepted,
		AssignedCourierID: &courierID,
	}
	store.Couriers[courierID] = &domain.Courier{
		ID:            courierID,
		Status:        domain.CourierEnRoutePickup,
		ActiveOrderID: &orderID,
	}
	svc := NewService(store, logx.Nop())

	o, err := svc.Transition(context.Background(), orderID, domain.OrderCancelled, domain.ActorSystem)
	require.NoError(t, err)
	require.Nil(t, o.AssignedCourierID)

	c := store.Couriers[courierID]
	require.Equal(t, domain.CourierOnline, c.Status)
	require.Nil(t, c.ActiveOrderID)
}

func TestTransition_DeliveredFreesCourierKeepsAssignment(t *testing.T) {
	t.Parallel()

	courierID := int64(7)
	orderID := "ord-1"
	store := testutil.NewStore()
	store.Orders[orderID] = &domain.Order{
		ID:                orderID,
		Status:            domain.OrderInTransit,
		AssignedCourierID: &courierID,
	}
	store.Couriers[courierID] = &domain.Courier{
		ID:            courierID,
		Status:        domain.CourierEnRouteDelivery,
		ActiveOrderID: &orderID,
	}
	svc := NewService(store, logx.Nop())

	o, err := svc.Transition(context.Background(), orderID, domain.OrderDelivered, domain.ActorSystem)
	require.NoError(t, err)
	require.Equal(t, domain.OrderDelivered, o.Status)
	require.NotNil(t, o.AssignedCourierID) // the record keeps who delivered it

	c := store.Couriers[courierID]
	require.Equal(t, domain.CourierOnline, c.Status)
	require.Nil(t, c.ActiveOrderID)
}

func TestTransition_PickedUpStartsDeliveryLeg(t *testing.T) {
	t.Parallel()

	courierID := int64(7)
	orderID := "ord-1"
	store := testutil.NewStore()
	store.Orders[orderID] = &domain.Order{
		ID:                orderID,
		Status:            domain.OrderAccepted,
		AssignedCourierID: &courierID,
	}
	store.Couriers[courierID] = &domain.Courier{
		ID:            courierID,
		Status:        domain.CourierEnRoutePickup,
		ActiveOrderID: &orderID,
	}
	svc := NewService(store, logx.Nop())

	_, err := svc.Transition(context.Background(), orderID, domain.OrderPickedUp, domain.ActorSystem)
	require.NoError(t, err)
	require.Equal(t, domain.CourierEnRouteDelivery, store.Couriers[courierID].Status)
}

func TestTransition_RetryResetsAttempts(t *testing.T) {
	t.Parallel()

	store := testutil.NewStore()
	store.Orders["ord-1"] = &domain.Order{
		ID:           "ord-1",
		Status:       domain.OrderNoCourierAvailable,
		AttemptCount: 5,
	}
	svc := NewService(store, logx.Nop())

	o, err := svc.Transition(context.Background(), "ord-1", domain.OrderPending, domain.ActorAdmin)
	require.NoError(t, err)
	require.Equal(t, domain.OrderPending, o.Status)
	require.Zero(t, o.AttemptCount)
}
