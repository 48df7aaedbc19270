// Package testutil holds in-memory doubles shared by service tests.
package testutil

import (
	"context"
	"fmt"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

// Store is an in-memory dispatchtx.Runner and Repository. WithTx runs fn
// directly against the maps; failed "transactions" are not rolled back, so
// tests assert state only on the success path.
type Store struct {
	Couriers map[int64]*domain.Courier
	Orders   map[string]*domain.Order
	Offers   map[string]*domain.Offer
	Samples  []*domain.LocationSample
	Events   []*domain.Event

	TxErr error // returned by WithTx before fn runs
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		Couriers: make(map[int64]*domain.Courier),
		Orders:   make(map[string]*domain.Order),
		Offers:   make(map[string]*domain.Offer),
	}
}

// WithTx implements dispatchtx.Runner.
func (s *Store) WithTx(_ context.Context, fn func(tx dispatchtx.Repository) error) error {
	if s.TxErr != nil {
		return s.TxErr
	}
	return fn(s)
}

func (s *Store) GetCourierForUpdate(_ context.Context, id int64) (*domain.Courier, error) {
	c, ok := s.Couriers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) UpdateCourier(_ context.Context, c *domain.Courier) error {
	cp := *c
	s.Couriers[c.ID] = &cp
	return nil
}

func (s *Store) GetOrderForUpdate(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.Orders[id]
	if !ok {
		return nil, nil
	}
	op := *o
	return &op, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus) error {
	o, ok := s.Orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	o.Status = status
	return nil
}

func (s *Store) AssignOrder(_ context.Context, id string, courierID int64) error {
	o, ok := s.Orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	o.AssignedCourierID = &courierID
	return nil
}

func (s *Store) ClearOrderAssignment(_ context.Context, id string) error {
	o, ok := s.Orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	o.AssignedCourierID = nil
	return nil
}

func (s *Store) SetOrderBatch(_ context.Context, id, batchID string, seq int, courierID int64) error {
	o, ok := s.Orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	o.BatchID = &batchID
	o.BatchOrder = &seq
	o.AssignedCourierID = &courierID
	return nil
}

func (s *Store) IncrementOrderAttempts(_ context.Context, id string) (int, error) {
	o, ok := s.Orders[id]
	if !ok {
		return 0, fmt.Errorf("order %s not found", id)
	}
	o.AttemptCount++
	return o.AttemptCount, nil
}

func (s *Store) ResetOrderAttempts(_ context.Context, id string) error {
	o, ok := s.Orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	o.AttemptCount = 0
	return nil
}

func (s *Store) GetOfferForUpdate(_ context.Context, id string) (*domain.Offer, error) {
	o, ok := s.Offers[id]
	if !ok {
		return nil, nil
	}
	op := *o
	return &op, nil
}

func (s *Store) InsertOfferIfNone(_ context.Context, o *domain.Offer) (bool, error) {
	for _, existing := range s.Offers {
		if existing.OrderID == o.OrderID &&
			existing.Status == domain.OfferPending &&
			existing.ExpiresAt.After(o.OfferedAt) {
			return false, nil
		}
	}
	op := *o
	s.Offers[o.ID] = &op
	return true, nil
}

func (s *Store) UpdateOfferStatus(_ context.Context, id string, status domain.OfferStatus, reason domain.FailureReason) error {
	o, ok := s.Offers[id]
	if !ok {
		return fmt.Errorf("offer %s not found", id)
	}
	o.Status = status
	o.FailureReason = reason
	return nil
}

func (s *Store) ExpirePendingOffers(_ context.Context, orderID, exceptOfferID string) (int64, error) {
	var n int64
	for _, o := range s.Offers {
		if o.OrderID == orderID && o.ID != exceptOfferID && o.Status == domain.OfferPending {
			o.Status = domain.OfferExpired
			o.FailureReason = domain.FailureTimeout
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertSample(_ context.Context, sample *domain.LocationSample) error {
	sp := *sample
	s.Samples = append(s.Samples, &sp)
	return nil
}

func (s *Store) InsertEvent(_ context.Context, e *domain.Event) error {
	ep := *e
	ep.ID = int64(len(s.Events) + 1)
	if ep.Kind == "" {
		ep.Kind = domain.KindOf(ep.Payload)
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now()
	}
	s.Events = append(s.Events, &ep)
	return nil
}

// EventKinds returns the kinds of all recorded events, in order.
func (s *Store) EventKinds() []domain.EventKind {
	out := make([]domain.EventKind, 0, len(s.Events))
	for _, e := range s.Events {
		out = append(out, e.Kind)
	}
	return out
}
