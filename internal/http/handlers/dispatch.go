package handlers

import (
	"net/http"

	"service-dispatch/internal/geo"
)

// DispatchHandler serves the offer distribution endpoints.
type DispatchHandler struct{ uc dispatchUsecase }

// NewDispatchHandler wires a dispatchUsecase into HTTP handlers.
func NewDispatchHandler(uc dispatchUsecase) *DispatchHandler { return &DispatchHandler{uc: uc} }

// Distribute handles POST /orders/{id}/distribute.
func (h *DispatchHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	orderID, err := stringFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}
	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	res, err := h.uc.Distribute(ctx, orderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, distributeResponse{
		Outcome: string(res.Outcome),
		Offer:   toOfferDTO(res.Offer),
	})
}

// Respond handles POST /offers/{id}/respond.
func (h *DispatchHandler) Respond(w http.ResponseWriter, r *http.Request) {
	offerID, err := stringFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid offer id")
		return
	}
	var req respondRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		writeError(w, r, http.StatusBadRequest, "lat and lon must be supplied together")
		return
	}
	var at *geo.Point
	if req.Lat != nil {
		at = &geo.Point{Lat: *req.Lat, Lon: *req.Lon}
	}

	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	res, err := h.uc.Respond(ctx, offerID, req.Accept, at)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, respondResponse{
		Outcome:    string(res.Outcome),
		AutoPaused: res.AutoPaused,
	})
}
