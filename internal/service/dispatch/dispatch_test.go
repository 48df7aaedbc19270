package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/config"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/testutil"
)

var (
	clock  = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	origin = geo.Point{Lat: 43.238949, Lon: 76.889709}
	dest   = geo.Point{Lat: 43.25, Lon: 76.95}
)

// pointAtKm returns a point roughly km kilometers north of origin.
func pointAtKm(km float64) geo.Point {
	return geo.Point{Lat: origin.Lat + km/111.195, Lon: origin.Lon}
}

type storeSources struct {
	store *testutil.Store
}

func (s storeSources) ListAvailable(context.Context) ([]*domain.Courier, error) {
	var out []*domain.Courier
	for _, c := range s.store.Couriers {
		if dispatchable(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s storeSources) GetByIDs(_ context.Context, ids []int64) ([]*domain.Courier, error) {
	var out []*domain.Courier
	for _, id := range ids {
		if c, ok := s.store.Couriers[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s storeSources) Get(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.store.Orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	op := *o
	return &op, nil
}

func (s storeSources) ListRetryablePending(_ context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range s.store.Orders {
		if o.Status != domain.OrderPending || o.Origin == nil {
			continue
		}
		live := false
		for _, f := range s.store.Offers {
			if f.OrderID == o.ID && f.Status == domain.OfferPending && f.ExpiresAt.After(now) {
				live = true
				break
			}
		}
		if !live && len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s storeSources) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]*domain.Offer, error) {
	var out []*domain.Offer
	for _, f := range s.store.Offers {
		if f.Status == domain.OfferPending && !f.ExpiresAt.After(now) && len(out) < limit {
			fp := *f
			out = append(out, &fp)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	messages []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, _ int64, msg notify.Message) error {
	r.messages = append(r.messages, msg)
	return nil
}

type recordingIndex struct {
	nearby  []int64
	removed []int64
}

func (r *recordingIndex) Nearby(context.Context, geo.Point, float64, int) ([]int64, error) {
	return r.nearby, nil
}

func (r *recordingIndex) Remove(_ context.Context, courierID int64) error {
	r.removed = append(r.removed, courierID)
	return nil
}

type fixture struct {
	store    *testutil.Store
	svc      *Service
	notifier *recordingNotifier
	index    *recordingIndex
}

func newFixture(index *recordingIndex) *fixture {
	store := testutil.NewStore()
	notifier := &recordingNotifier{}
	src := storeSources{store: store}

	var candidateIndex CandidateIndex
	if index != nil {
		candidateIndex = index
	}
	svc := NewService(
		store, src, src, src, candidateIndex, notifier,
		config.Default().Offers,
		metrics.NewOffersCreatedTotal(),
		metrics.NewOfferFailuresTotal(),
		logx.Nop(),
	)
	svc.now = func() time.Time { return clock }
	return &fixture{store: store, svc: svc, notifier: notifier, index: index}
}

func (f *fixture) addOrder(id string, status domain.OrderStatus) *domain.Order {
	o := &domain.Order{
		ID:          id,
		Status:      status,
		Origin:      &origin,
		Destination: &dest,
		Price:       1500,
		CreatedAt:   clock,
	}
	f.store.Orders[id] = o
	return o
}

func (f *fixture) addCourier(id int64, distanceKm float64, priority int) *domain.Courier {
	p := pointAtKm(distanceKm)
	c := &domain.Courier{
		ID:            id,
		Status:        domain.CourierOnline,
		Eligible:      true,
		PriorityScore: priority,
		Location:      &domain.Location{Point: p, UpdatedAt: clock},
	}
	f.store.Couriers[id] = c
	return c
}

func (f *fixture) pendingOffer(t *testing.T, orderID string, courierID int64) *domain.Offer {
	t.Helper()
	f.addCourier(courierID, 4, 0)
	res, err := f.svc.Distribute(context.Background(), orderID)
	require.NoError(t, err)
	require.Equal(t, OutcomeOfferCreated, res.Outcome)
	require.Equal(t, courierID, res.Offer.CourierID)
	return res.Offer
}

func TestDistribute_CreatesOffer(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	f.addCourier(1, 4, 0)

	res, err := f.svc.Distribute(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeOfferCreated, res.Outcome)

	offer := res.Offer
	require.Equal(t, int64(1), offer.CourierID)
	require.InDelta(t, 4.0, offer.DistanceToPickupKm, 0.05)
	require.Equal(t, 1, offer.AttemptNumber)
	require.Equal(t, clock.Add(60*time.Second), offer.ExpiresAt)

	require.Equal(t, 1, f.store.Orders["ord-1"].AttemptCount)
	require.Equal(t, []domain.EventKind{domain.EventOfferCreated}, f.store.EventKinds())
	require.Len(t, f.notifier.messages, 1)
	require.Equal(t, notify.TypeOffer, f.notifier.messages[0].Type)
	require.Equal(t, offer.ID, f.notifier.messages[0].OfferID)
}

func TestDistribute_RankingPrefersLowPenaltyThenDistance(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	f.addCourier(1, 2, 20) // closest but penalized
	f.addCourier(2, 6, 0)
	f.addCourier(3, 8, 0)

	res, err := f.svc.Distribute(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeOfferCreated, res.Outcome)
	require.Equal(t, int64(2), res.Offer.CourierID)
}

func TestDistribute_DistanceFilter(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	f.addCourier(1, 11, 0) // beyond the pickup radius

	res, err := f.svc.Distribute(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeWaitingForCourier, res.Outcome)
	require.Empty(t, f.store.Offers)
}

func TestDistribute_SkipsIneligibleCandidates(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	busy := f.addCourier(1, 1, 0)
	orderID := "other"
	busy.ActiveOrderID = &orderID
	paused := f.addCourier(2, 2, 0)
	paused.Eligible = false
	offline := f.addCourier(3, 3, 0)
	offline.Status = domain.CourierOffline

	res, err := f.svc.Distribute(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeWaitingForCourier, res.Outcome)
}

func TestDistribute_Guards(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderDelivered)

	res, err := f.svc.Distribute(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyInProgress, res.Outcome)

	_, err = f.svc.Distribute(context.Background(), "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	o := f.addOrder("ord-2", domain.OrderPending)
	o.Origin = nil
	_, err = f.svc.Distribute(context.Background(), "ord-2")
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestDistribute_LiveOfferBlocksSecondRound(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	f.pendingOffer(t, "ord-1", 1)
	f.addCourier(2, 3, 0)

	res, err := f.svc.Distribute(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyInProgress, res.Outcome)
	require.Len(t, f.store.Offers, 1)
}

func TestDistribute_EscalatesAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	o := f.addOrder("ord-1", domain.OrderPending)
	o.AttemptCount = config.Default().Offers.MaxAttempts
	f.addCourier(1, 4, 0)

	res, err := f.svc.Distribute(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeNoCourierAvailable, res.Outcome)
	require.Equal(t, domain.OrderNoCourierAvailable, f.store.Orders["ord-1"].Status)
	require.Equal(t, []domain.EventKind{domain.EventStatusChanged}, f.store.EventKinds())
}

func TestDistribute_UsesIndexCandidates(t *testing.T) {
	t.Parallel()

	index := &recordingIndex{nearby: []int64{2}}
	f := newFixture(index)
	f.addOrder("ord-1", domain.OrderPending)
	f.addCourier(1, 1, 0) // not in the index result
	f.addCourier(2, 5, 0)

	res, err := f.svc.Distribute(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeOfferCreated, res.Outcome)
	require.Equal(t, int64(2), res.Offer.CourierID)
}

func TestRespond_Accept(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	offer := f.pendingOffer(t, "ord-1", 1)

	at := pointAtKm(3.5)
	res, err := f.svc.Respond(context.Background(), offer.ID, true, &at)
	require.NoError(t, err)
	require.Equal(t, RespondAccepted, res.Outcome)

	o := f.store.Orders["ord-1"]
	require.Equal(t, domain.OrderAccepted, o.Status)
	require.Equal(t, int64(1), *o.AssignedCourierID)

	c := f.store.Couriers[1]
	require.Equal(t, domain.CourierEnRoutePickup, c.Status)
	require.Equal(t, "ord-1", *c.ActiveOrderID)
	require.Equal(t, at, c.Location.Point)

	require.Equal(t, domain.OfferAccepted, f.store.Offers[offer.ID].Status)
	require.Equal(t,
		[]domain.EventKind{domain.EventOfferCreated, domain.EventOfferAccepted},
		f.store.EventKinds())
}

func TestRespond_Reject(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	offer := f.pendingOffer(t, "ord-1", 1)

	res, err := f.svc.Respond(context.Background(), offer.ID, false, nil)
	require.NoError(t, err)
	require.Equal(t, RespondRejected, res.Outcome)
	require.False(t, res.AutoPaused)

	c := f.store.Couriers[1]
	require.Equal(t, 1, c.RejectionsToday)
	require.Equal(t, 10, c.PriorityScore)
	require.Equal(t, domain.CourierOnline, c.Status)

	stored := f.store.Offers[offer.ID]
	require.Equal(t, domain.OfferRejected, stored.Status)
	require.Equal(t, domain.FailureRejected, stored.FailureReason)
}

func TestRespond_LateAcceptBehavesLikeTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	offer := f.pendingOffer(t, "ord-1", 1)

	f.svc.now = func() time.Time { return clock.Add(61 * time.Second) }
	res, err := f.svc.Respond(context.Background(), offer.ID, true, nil)
	require.NoError(t, err)
	require.Equal(t, RespondExpired, res.Outcome)

	// same side effects as a timeout: penalty applied, no assignment
	c := f.store.Couriers[1]
	require.Equal(t, 1, c.RejectionsToday)
	require.Equal(t, 10, c.PriorityScore)
	require.Nil(t, f.store.Orders["ord-1"].AssignedCourierID)
	require.Equal(t, domain.OrderPending, f.store.Orders["ord-1"].Status)

	stored := f.store.Offers[offer.ID]
	require.Equal(t, domain.OfferExpired, stored.Status)
	require.Equal(t, domain.FailureTimeout, stored.FailureReason)
}

func TestRespond_AutoPauseAtDailyCap(t *testing.T) {
	t.Parallel()

	index := &recordingIndex{}
	f := newFixture(index)
	f.addOrder("ord-1", domain.OrderPending)
	offer := f.pendingOffer(t, "ord-1", 1)
	f.store.Couriers[1].RejectionsToday = 4

	res, err := f.svc.Respond(context.Background(), offer.ID, false, nil)
	require.NoError(t, err)
	require.True(t, res.AutoPaused)

	c := f.store.Couriers[1]
	require.Equal(t, domain.CourierOffline, c.Status)
	require.Equal(t, 5, c.RejectionsToday)
	require.Nil(t, c.Location)
	require.Equal(t, []int64{1}, index.removed)
}

func TestRespond_OrderUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	offer := f.pendingOffer(t, "ord-1", 1)

	// the order got cancelled while the offer was live
	f.store.Orders["ord-1"].Status = domain.OrderCancelled

	res, err := f.svc.Respond(context.Background(), offer.ID, true, nil)
	require.NoError(t, err)
	require.Equal(t, RespondOrderUnavailable, res.Outcome)
	require.Equal(t, domain.OfferExpired, f.store.Offers[offer.ID].Status)

	// no penalty for losing the race
	require.Zero(t, f.store.Couriers[1].RejectionsToday)
}

func TestRespond_ResolvedOfferConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	offer := f.pendingOffer(t, "ord-1", 1)

	_, err := f.svc.Respond(context.Background(), offer.ID, false, nil)
	require.NoError(t, err)

	_, err = f.svc.Respond(context.Background(), offer.ID, true, nil)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.Respond(context.Background(), "missing", true, nil)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExpireOffers(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	offer := f.pendingOffer(t, "ord-1", 1)

	// not expired yet: sweep is a no-op
	n, err := f.svc.ExpireOffers(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, n)

	f.svc.now = func() time.Time { return clock.Add(2 * time.Minute) }
	n, err = f.svc.ExpireOffers(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	stored := f.store.Offers[offer.ID]
	require.Equal(t, domain.OfferExpired, stored.Status)
	require.Equal(t, domain.FailureTimeout, stored.FailureReason)
	require.Equal(t, 1, f.store.Couriers[1].RejectionsToday)
}

func TestRetryPending(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.addOrder("ord-1", domain.OrderPending)
	f.addCourier(1, 4, 0)

	n, err := f.svc.RetryPending(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, f.store.Offers, 1)

	// the live offer keeps the order out of the next sweep
	n, err = f.svc.RetryPending(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, n)
}
