package handlers

import (
	"errors"
	"net/http"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/batch"
)

// writeDomainError maps service errors to HTTP statuses. State machine and
// eligibility failures carry their message through; everything unexpected
// collapses to a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidTransition *domain.InvalidTransitionError
		eligibility       *batch.EligibilityError
	)
	switch {
	case errors.As(err, &invalidTransition):
		writeError(w, r, http.StatusConflict, invalidTransition.Error())
	case errors.As(err, &eligibility):
		writeError(w, r, http.StatusConflict, eligibility.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrInvalid):
		writeError(w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflict")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
