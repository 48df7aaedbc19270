package handlers

import (
	"net/http"
)

// BatchHandler serves the proximity clustering endpoints.
type BatchHandler struct{ uc batchUsecase }

// NewBatchHandler wires a batchUsecase into HTTP handlers.
func NewBatchHandler(uc batchUsecase) *BatchHandler { return &BatchHandler{uc: uc} }

// Suggestions handles GET /batches/suggestions.
func (h *BatchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	suggestions, err := h.uc.SuggestBatches(ctx)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]suggestionDTO, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, toSuggestionDTO(s))
	}
	writeJSON(w, r, http.StatusOK, out)
}

// Create handles POST /batches.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if req.CourierID <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid courier id")
		return
	}

	ctx, cancel := withDBTimeout(r.Context())
	defer cancel()

	batchID, err := h.uc.CreateBatch(ctx, req.OrderIDs, req.CourierID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]string{"batch_id": batchID})
}
