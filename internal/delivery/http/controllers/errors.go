package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventspots/internal/delivery/http/helpers"
	"eventspots/internal/domain"
)

// writeServiceError maps a service error to an HTTP status code and writes the
// JSON error envelope. Unrecognized errors are logged and returned as 500.
func writeServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidSpotsCount):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrEventClosed),
		errors.Is(err, domain.ErrDuplicateRegistration),
		errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, domain.ErrNotWaitlisted),
		errors.Is(err, domain.ErrWouldOverbook),
		errors.Is(err, domain.ErrWouldExceedCapacity),
		errors.Is(err, domain.ErrCancellationDeadline),
		errors.Is(err, domain.ErrInvalidPaymentTransition),
		errors.Is(err, domain.ErrDuplicatePayment),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrAlreadyCheckedIn),
		errors.Is(err, domain.ErrCheckInUndone),
		errors.Is(err, domain.ErrNotConfirmed),
		errors.Is(err, domain.ErrDuplicateEmail):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
