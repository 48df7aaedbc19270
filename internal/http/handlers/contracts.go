package handlers

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/repository"
	"service-dispatch/internal/service/batch"
	"service-dispatch/internal/service/courier"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/service/location"
	"service-dispatch/internal/service/order"
	"service-dispatch/internal/service/routing"
)

type dispatchUsecase interface {
	Distribute(ctx context.Context, orderID string) (dispatch.Result, error)
	Respond(ctx context.Context, offerID string, accept bool, at *geo.Point) (dispatch.RespondResult, error)
}

// NewDispatchUsecase wires a dispatch Service into a dispatchUsecase.
func NewDispatchUsecase(svc *dispatch.Service) dispatchUsecase {
	return svc
}

type courierUsecase interface {
	Transition(ctx context.Context, courierID int64, target domain.CourierStatus) (*domain.Courier, error)
}

// NewCourierUsecase wires a courier Service into a courierUsecase.
func NewCourierUsecase(svc *courier.Service) courierUsecase {
	return svc
}

type courierQuery interface {
	Get(ctx context.Context, id int64) (*domain.Courier, error)
}

// NewCourierQuery wires the courier read repository into a courierQuery.
func NewCourierQuery(repo *repository.CourierRepo) courierQuery {
	return repo
}

type locationUsecase interface {
	Ingest(ctx context.Context, in location.Input) (domain.IntegrityResult, error)
	NearStop(ctx context.Context, courierID int64) (location.Arrival, error)
}

// NewLocationUsecase wires a location Service into a locationUsecase.
func NewLocationUsecase(svc *location.Service) locationUsecase {
	return svc
}

type orderUsecase interface {
	Transition(ctx context.Context, orderID string, target domain.OrderStatus, actor domain.Actor) (*domain.Order, error)
}

// NewOrderUsecase wires an order Service into an orderUsecase.
func NewOrderUsecase(svc *order.Service) orderUsecase {
	return svc
}

type orderQuery interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
}

// NewOrderQuery wires the order read repository into an orderQuery.
func NewOrderQuery(repo *repository.OrderRepo) orderQuery {
	return repo
}

type eventQuery interface {
	ListByOrder(ctx context.Context, orderID string, limit int) ([]repository.EventRecord, error)
}

// NewEventQuery wires the event read repository into an eventQuery.
func NewEventQuery(repo *repository.EventRepo) eventQuery {
	return repo
}

type batchUsecase interface {
	SuggestBatches(ctx context.Context) ([]batch.Suggestion, error)
	CreateBatch(ctx context.Context, orderIDs []string, courierID int64) (string, error)
}

// NewBatchUsecase wires a batch Service into a batchUsecase.
func NewBatchUsecase(svc *batch.Service) batchUsecase {
	return svc
}

type routingUsecase interface {
	SuggestInsertions(ctx context.Context, courierID int64) ([]routing.Insertion, error)
}

// NewRoutingUsecase wires a routing Service into a routingUsecase.
func NewRoutingUsecase(svc *routing.Service) routingUsecase {
	return svc
}
