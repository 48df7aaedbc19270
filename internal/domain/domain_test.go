package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCourierTransitions_Table(t *testing.T) {
	t.Parallel()

	require.True(t, CourierOffline.CanTransition(CourierOnline))
	require.True(t, CourierOnline.CanTransition(CourierEnRoutePickup))
	require.True(t, CourierEnRoutePickup.CanTransition(CourierEnRouteDelivery))
	require.True(t, CourierEnRouteDelivery.CanTransition(CourierOnline))
	require.True(t, CourierEmergency.CanTransition(CourierOffline))

	require.False(t, CourierOffline.CanTransition(CourierEnRoutePickup))
	require.False(t, CourierOnline.CanTransition(CourierEnRouteDelivery))
	require.False(t, CourierEnRouteDelivery.CanTransition(CourierEnRoutePickup))
	require.False(t, CourierEnRouteDelivery.CanTransition(CourierOffline))
}

func TestOrderTransitions_Table(t *testing.T) {
	t.Parallel()

	require.True(t, OrderAwaitingPayment.CanTransition(OrderPending))
	require.True(t, OrderPending.CanTransition(OrderNoCourierAvailable))
	require.True(t, OrderNoCourierAvailable.CanTransition(OrderPending))
	require.True(t, OrderInTransit.CanTransition(OrderDelivered))

	require.False(t, OrderDelivered.CanTransition(OrderPending))
	require.False(t, OrderCancelled.CanTransition(OrderPending))
	require.False(t, OrderPending.CanTransition(OrderPickedUp))
	require.False(t, OrderAccepted.CanTransition(OrderInTransit))
}

func TestStatus_Valid(t *testing.T) {
	t.Parallel()

	require.True(t, CourierOnline.Valid())
	require.False(t, CourierStatus("napping").Valid())
	require.True(t, OrderPending.Valid())
	require.False(t, OrderStatus("lost").Valid())
}

func TestInvalidTransitionError_Message(t *testing.T) {
	t.Parallel()

	err := &InvalidTransitionError{Entity: "courier", From: "offline", To: "en_route_pickup"}
	require.EqualError(t, err, `courier: invalid transition from "offline" to "en_route_pickup"`)
}

func TestOffer_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := &Offer{ExpiresAt: now.Add(60 * time.Second)}

	require.False(t, o.Expired(now))
	require.False(t, o.Expired(now.Add(60*time.Second)))
	require.True(t, o.Expired(now.Add(61*time.Second)))
}

func TestKindOf_Payloads(t *testing.T) {
	t.Parallel()

	require.Equal(t, EventOfferCreated, KindOf(OfferCreatedPayload{}))
	require.Equal(t, EventOfferAccepted, KindOf(OfferAcceptedPayload{}))
	require.Equal(t, EventOfferRejected, KindOf(OfferFailedPayload{Reason: FailureRejected}))
	require.Equal(t, EventOfferTimedOut, KindOf(OfferFailedPayload{Reason: FailureTimeout}))
	require.Equal(t, EventGPSFlagged, KindOf(GPSFlaggedPayload{}))
	require.Equal(t, EventStatusChanged, KindOf(StatusChangedPayload{}))
	require.Equal(t, EventBatchCreated, KindOf(BatchCreatedPayload{}))
}
