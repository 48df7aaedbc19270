package handlers

import (
	"net/http"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/repository"
)

const eventListLimit = 100

// OrderHandler serves order status and audit endpoints.
type OrderHandler struct {
	orders orderUsecase
	query  orderQuery
	events eventQuery
}

// NewOrderHandler wires the order usecases into HTTP handlers.
func NewOrderHandler(orders orderUsecase, query orderQuery, events eventQuery) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		query:  query,
		events: events,
	}
}

// GetByID handles GET /orders/{id}.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := stringFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}
	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	o, err := h.query.Get(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderDTO(o))
}

// UpdateStatus handles POST /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := stringFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}
	var req orderStatusRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	actor := domain.Actor(req.Actor)
	switch actor {
	case domain.ActorClient, domain.ActorSystem, domain.ActorAdmin:
	default:
		writeError(w, r, http.StatusBadRequest, "invalid actor")
		return
	}

	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	o, err := h.orders.Transition(ctx, id, domain.OrderStatus(req.Status), actor)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderDTO(o))
}

// Events handles GET /orders/{id}/events.
func (h *OrderHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, err := stringFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}
	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	records, err := h.events.ListByOrder(ctx, id, eventListLimit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]eventDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, toEventDTO(rec))
	}
	writeJSON(w, r, http.StatusOK, out)
}
