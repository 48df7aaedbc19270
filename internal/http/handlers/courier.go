package handlers

import (
	"net/http"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/repository"
	"service-dispatch/internal/service/location"
)

// CourierHandler serves courier status, position and route endpoints.
type CourierHandler struct {
	couriers courierUsecase
	query    courierQuery
	loc      locationUsecase
	routes   routingUsecase
}

// NewCourierHandler wires the courier-facing usecases into HTTP handlers.
func NewCourierHandler(couriers courierUsecase, query courierQuery, loc locationUsecase, routes routingUsecase) *CourierHandler {
	return &CourierHandler{
		couriers: couriers,
		query:    query,
		loc:      loc,
		routes:   routes,
	}
}

// GetByID handles GET /couriers/{id}.
func (h *CourierHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	c, err := h.query.Get(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, r, http.StatusOK, toCourierDTO(c))
}

// UpdateStatus handles POST /couriers/{id}/status.
func (h *CourierHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req statusRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	c, err := h.couriers.Transition(ctx, id, domain.CourierStatus(req.Status))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCourierDTO(c))
}

// IngestLocation handles POST /couriers/{id}/location.
func (h *CourierHandler) IngestLocation(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req locationRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		writeError(w, r, http.StatusBadRequest, "invalid coordinates")
		return
	}

	in := location.Input{
		CourierID:  id,
		Point:      geo.Point{Lat: req.Lat, Lon: req.Lon},
		AccuracyM:  req.AccuracyM,
		SpeedKmh:   req.SpeedKmh,
		HeadingDeg: req.HeadingDeg,
	}
	if req.RecordedAt != nil {
		in.RecordedAt = *req.RecordedAt
	}

	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	res, err := h.loc.Ingest(ctx, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ingestResponse{Accepted: !res.Fake, Reason: res.Reason})
}

// Arrival handles GET /couriers/{id}/arrival.
func (h *CourierHandler) Arrival(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	arrival, err := h.loc.NearStop(ctx, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, arrivalResponse{
		Near:       arrival.Near,
		DistanceKm: arrival.DistanceKm,
	})
}

// RouteSuggestions handles GET /couriers/{id}/route-suggestions.
func (h *CourierHandler) RouteSuggestions(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	insertions, err := h.routes.SuggestInsertions(ctx, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]insertionDTO, 0, len(insertions))
	for _, in := range insertions {
		out = append(out, toInsertionDTO(in))
	}
	writeJSON(w, r, http.StatusOK, out)
}
